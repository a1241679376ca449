package httpapi

import "context"

// Runs started by POST /analyze outlive the request that submitted them,
// so handlers bind them to a process-lifetime context rather than
// r.Context(). Canceling it during shutdown aborts any in-flight run.
var runBaseCtx = context.Background()

// SetBaseContext installs the context that asynchronous runs inherit.
// Passing nil restores the default Background context.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	runBaseCtx = ctx
}
