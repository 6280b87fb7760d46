package irsdk

import (
	"fmt"
	"strconv"
	"strings"
)

// BroadcastMsg identifies a remote-control message. Values follow the
// native SDK numbering.
type BroadcastMsg int

const (
	MsgCamSwitchPos BroadcastMsg = iota
	MsgCamSwitchNum
	MsgCamSetState
	MsgReplaySetPlaySpeed
	MsgReplaySetPlayPosition
	MsgReplaySearch
	MsgReplaySetState
	MsgReloadTextures
	MsgChatCommand
	MsgPitCommand
	MsgTelemCommand
	MsgFFBCommand
	MsgReplaySearchSessionTime
	MsgVideoCapture
)

var msgNames = [...]string{
	"CamSwitchPos",
	"CamSwitchNum",
	"CamSetState",
	"ReplaySetPlaySpeed",
	"ReplaySetPlayPosition",
	"ReplaySearch",
	"ReplaySetState",
	"ReloadTextures",
	"ChatCommand",
	"PitCommand",
	"TelemCommand",
	"FFBCommand",
	"ReplaySearchSessionTime",
	"VideoCapture",
}

func (m BroadcastMsg) String() string {
	if m < 0 || int(m) >= len(msgNames) {
		return fmt.Sprintf("BroadcastMsg(%d)", int(m))
	}
	return msgNames[m]
}

// ParseBroadcastMsg accepts a message name such as "PitCommand" (case
// insensitive) or its number.
func ParseBroadcastMsg(s string) (BroadcastMsg, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= len(msgNames) {
			return 0, fmt.Errorf("unknown broadcast message %d", n)
		}
		return BroadcastMsg(n), nil
	}
	for i, name := range msgNames {
		if strings.EqualFold(name, s) {
			return BroadcastMsg(i), nil
		}
	}
	return 0, fmt.Errorf("unknown broadcast message %q", s)
}

// CameraState is a bit set of camera tool flags.
type CameraState int

const (
	CamIsSessionScreen       CameraState = 0x0001
	CamIsScenicActive        CameraState = 0x0002
	CamToolActive            CameraState = 0x0004
	CamUIHidden              CameraState = 0x0008
	CamUseAutoShotSelection  CameraState = 0x0010
	CamUseTemporaryEdits     CameraState = 0x0020
	CamUseKeyAcceleration    CameraState = 0x0040
	CamUseKey10xAcceleration CameraState = 0x0080
	CamUseMouseAimMode       CameraState = 0x0100
)

// ReplayPosition anchors a replay seek.
type ReplayPosition int

const (
	ReplayPosBegin ReplayPosition = iota
	ReplayPosCurrent
	ReplayPosEnd
)

// ReplaySearchMode selects what a replay search jumps to.
type ReplaySearchMode int

const (
	ReplaySearchToStart ReplaySearchMode = iota
	ReplaySearchToEnd
	ReplaySearchPrevSession
	ReplaySearchNextSession
	ReplaySearchPrevLap
	ReplaySearchNextLap
	ReplaySearchPrevFrame
	ReplaySearchNextFrame
	ReplaySearchPrevIncident
	ReplaySearchNextIncident
)

// ReplayStateMode changes the replay tape.
type ReplayStateMode int

const ReplayStateEraseTape ReplayStateMode = 0

// ReloadTexturesMode selects which car textures to reload.
type ReloadTexturesMode int

const (
	ReloadTexturesAll ReloadTexturesMode = iota
	ReloadTexturesCarIdx
)

// ChatMode drives the chat window.
type ChatMode int

const (
	ChatMacro ChatMode = iota
	ChatBeginChat
	ChatReply
	ChatCancel
)

// PitMode is a pit service request.
type PitMode int

const (
	PitClear PitMode = iota
	PitWS
	PitFuel
	PitLF
	PitRF
	PitLR
	PitRR
	PitClearTires
	PitFR
	PitClearWS
	PitClearFR
	PitClearFuel
)

// TelemMode controls disk telemetry recording.
type TelemMode int

const (
	TelemStop TelemMode = iota
	TelemStart
	TelemRestart
)

// FFBMode selects the force feedback parameter to set.
type FFBMode int

const FFBMaxForce FFBMode = 0

// VideoCaptureMode controls screenshots and video capture.
type VideoCaptureMode int

const (
	VideoTriggerScreenShot VideoCaptureMode = iota
	VideoStartCapture
	VideoEndCapture
	VideoToggleCapture
	VideoShowTimer
	VideoHideTimer
)

// Command is one broadcast message with up to three arguments. Build it
// with the constructors below so the arguments match the message.
type Command struct {
	Msg  BroadcastMsg
	Var1 int
	Var2 int
	Var3 int
}

// Args returns the message followed by its arguments.
func (c Command) Args() []int {
	return []int{int(c.Msg), c.Var1, c.Var2, c.Var3}
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%d, %d, %d)", c.Msg, c.Var1, c.Var2, c.Var3)
}

// SwitchCameraByPosition focuses the camera on the car in race position pos.
func SwitchCameraByPosition(pos, group, camera int) Command {
	return Command{Msg: MsgCamSwitchPos, Var1: pos, Var2: group, Var3: camera}
}

// SwitchCameraByNumber focuses the camera on the car with the given number.
func SwitchCameraByNumber(carNumber, group, camera int) Command {
	return Command{Msg: MsgCamSwitchNum, Var1: carNumber, Var2: group, Var3: camera}
}

func SetCameraState(state CameraState) Command {
	return Command{Msg: MsgCamSetState, Var1: int(state)}
}

// SetReplaySpeed sets the playback speed; slowMotion turns speed into a
// divisor.
func SetReplaySpeed(speed int, slowMotion bool) Command {
	c := Command{Msg: MsgReplaySetPlaySpeed, Var1: speed}
	if slowMotion {
		c.Var2 = 1
	}
	return c
}

func SetReplayPosition(pos ReplayPosition, frame int) Command {
	return Command{Msg: MsgReplaySetPlayPosition, Var1: int(pos), Var2: frame}
}

func SearchReplay(mode ReplaySearchMode) Command {
	return Command{Msg: MsgReplaySearch, Var1: int(mode)}
}

func SetReplayState(mode ReplayStateMode) Command {
	return Command{Msg: MsgReplaySetState, Var1: int(mode)}
}

// ReloadTextures reloads all textures, or those of carIdx when mode is
// ReloadTexturesCarIdx.
func ReloadTextures(mode ReloadTexturesMode, carIdx int) Command {
	return Command{Msg: MsgReloadTextures, Var1: int(mode), Var2: carIdx}
}

// Chat drives the chat window; macro is only used with ChatMacro.
func Chat(mode ChatMode, macro int) Command {
	return Command{Msg: MsgChatCommand, Var1: int(mode), Var2: macro}
}

// Pit requests a pit service. param is litres for fuel and kPa for tyres;
// zero keeps the current value.
func Pit(mode PitMode, param int) Command {
	return Command{Msg: MsgPitCommand, Var1: int(mode), Var2: param}
}

func Telem(mode TelemMode) Command {
	return Command{Msg: MsgTelemCommand, Var1: int(mode)}
}

func FFB(mode FFBMode, value int) Command {
	return Command{Msg: MsgFFBCommand, Var1: int(mode), Var2: value}
}

// SearchReplaySessionTime seeks the replay to a session time in
// milliseconds.
func SearchReplaySessionTime(session, timeMS int) Command {
	return Command{Msg: MsgReplaySearchSessionTime, Var1: session, Var2: timeMS}
}

func CaptureVideo(mode VideoCaptureMode) Command {
	return Command{Msg: MsgVideoCapture, Var1: int(mode)}
}
