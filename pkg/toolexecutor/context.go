package toolexecutor

import "context"

// Tool handlers receive the member's execution context through the
// request context so handlers keep plain func signatures.
type execContextKey struct{}

// ContextWithExecContext attaches execCtx for downstream tool handlers.
// A nil execCtx leaves ctx untouched.
func ContextWithExecContext(ctx context.Context, execCtx *ExecutionContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if execCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, execContextKey{}, execCtx)
}

// ExecContextFromContext returns the execution context carried by ctx,
// or nil for an anonymous call.
func ExecContextFromContext(ctx context.Context) *ExecutionContext {
	if ctx == nil {
		return nil
	}
	execCtx, _ := ctx.Value(execContextKey{}).(*ExecutionContext)
	return execCtx
}
