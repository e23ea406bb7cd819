package handlers

const (
	RequestIDHeader = "X-Request-ID"

	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrTooManyRequests     = "Too many attempts, please try again later"
	ErrInternalServerError = "Internal server error"
)
