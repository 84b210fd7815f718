package middlewares

const (
	ctxUserIDKey    = "auth.userID"
	ctxEmailKey     = "auth.email"
	ctxRequestIDKey = "request_id"
)
