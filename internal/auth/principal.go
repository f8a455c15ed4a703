package auth

import "context"

type ctxKey struct{}

var principalKey ctxKey

// WithPrincipal attaches the authenticated principal to the context. Only
// the middleware calls this; nothing downstream may replace it mid-request.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromCtx fetches the authenticated principal, reporting false for
// anonymous requests.
func PrincipalFromCtx(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalKey)
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
