package httpx

import "context"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
)

// WithRequestID returns a new context that carries a request ID. The
// server assigns one per connection, which is also one per request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFrom extracts the request ID from ctx.
func RequestIDFrom(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKeyRequestID)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
