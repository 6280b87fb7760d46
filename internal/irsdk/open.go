package irsdk

import (
	"context"
	"sync"

	"racedash-sim/internal/logging"
)

var warnOnce sync.Once

// Open returns native when it is non-nil. Otherwise it warns once per
// process and returns a MockSDK fed by loader.
func Open(ctx context.Context, native SDK, loader Loader, opts ...Option) SDK {
	if native != nil {
		return native
	}
	log := logging.FromContext(ctx)
	warnOnce.Do(func() {
		log.Warn("native simulator SDK unavailable on this platform, using mock SDK")
	})
	return NewMockSDK(ctx, loader, append([]Option{WithLogger(log)}, opts...)...)
}
