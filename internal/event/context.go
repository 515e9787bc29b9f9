package event

import "context"

type ctxKey struct{}

// WithClientIP attaches the requesting client's address so events
// published further down the call chain can record it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKey{}).(string)
	return ip
}
