package models

// ErrorMessageResponse is the body of every failed api request. Keys are capitalized on
// the wire and clients such as the reconcile transport read Response.Message.
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError pairs the caller-facing message with the underlying error text
type MessageError struct {
	Message string
	Error   string
}

// NewErrorMessage builds the error body for message. err may be nil.
func NewErrorMessage(message string, err error) ErrorMessageResponse {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return ErrorMessageResponse{Response: MessageError{Message: message, Error: detail}}
}
