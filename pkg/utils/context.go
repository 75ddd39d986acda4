package utils

type ContextKey string

const (
	UserKey      ContextKey = "user"
	RequestIDKey ContextKey = "request_id"
)

// JWT claim names.
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
	NameKey   = "name"
	PhoneKey  = "phone"
	ExpKey    = "exp"
)
