package auditctx

import "context"

// Origin describes where a request came from. Handlers attach it so services can stamp audit
// entries without depending on the HTTP layer.
type Origin struct {
	IPAddress string
	UserAgent string
}

type originContextKey struct{}

// WithOrigin returns a derived context carrying origin.
func WithOrigin(ctx context.Context, origin Origin) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, originContextKey{}, origin)
}

// FromContext extracts previously stored origin metadata.
func FromContext(ctx context.Context) (Origin, bool) {
	if ctx == nil {
		return Origin{}, false
	}
	origin, ok := ctx.Value(originContextKey{}).(Origin)
	return origin, ok
}
