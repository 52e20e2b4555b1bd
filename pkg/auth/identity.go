package auth

import "context"

// Identity is the authenticated caller. Email is the ownership key every
// product and request check compares against.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func (i Identity) IsZero() bool { return i.Email == "" }

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromCtx returns the identity stored by the auth middleware.
func FromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && !id.IsZero()
}
