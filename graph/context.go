package graph

import "context"

type threadIDKey struct{}

// WithThreadID attaches the conversation thread to ctx. Runnable does this for
// every invocation that carries a Config.ThreadID.
func WithThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadIDKey{}, threadID)
}

// ThreadID returns the thread attached to ctx, or "".
func ThreadID(ctx context.Context) string {
	id, _ := ctx.Value(threadIDKey{}).(string)
	return id
}
