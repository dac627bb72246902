package auth

import "context"

type contextKey struct{}

// SetUserID binds the authenticated user id to the request context.
// Done in exactly one place, the auth middleware; handlers must not
// resolve identity any other way.
func SetUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(contextKey{}).(int)
	return userID, ok
}
