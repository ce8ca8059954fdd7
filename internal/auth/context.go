package auth

import "context"

// Identity is the verified caller of a request.
type Identity struct {
	UserID uint
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type ctxKey string

const identityKey ctxKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != 0
}

// UserIDFrom returns the authenticated user id or 0.
func UserIDFrom(ctx context.Context) (uint, bool) {
	id, ok := IdentityFrom(ctx)
	return id.UserID, ok
}
