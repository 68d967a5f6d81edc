package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

// Clock is the time source injected into services so tests can pin "now".
type Clock interface {
	Now(ctx context.Context) time.Time
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)

type SystemClock struct{}

func (SystemClock) Now(context.Context) time.Time {
	return time.Now()
}

// Fixed is a clock pinned to a single instant, for tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now(context.Context) time.Time { return f.T }
