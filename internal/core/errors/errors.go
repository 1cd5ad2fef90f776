package errors

import "fmt"

// ErrorResponse is the uniform error body for every endpoint.
// The worker and the dashboard both key on statusCode/message.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func New(statusCode int, message string) ErrorResponse {
	return ErrorResponse{StatusCode: statusCode, Message: message}
}

func Newf(statusCode int, format string, args ...interface{}) ErrorResponse {
	return ErrorResponse{StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}

func (e ErrorResponse) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}
