package web

type contextKey string

// UserIDKey is the context key under which the authenticated user identity is stored.
const UserIDKey = contextKey("userID")

type requestIDKey struct{}
