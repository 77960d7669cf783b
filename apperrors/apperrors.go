// Package apperrors defines the error classes the admin workflow reports
// to callers. Anything not wrapped in one of these types is treated as an
// internal failure and never echoed beyond a generic message.
package apperrors

// ValidationError indicates malformed or missing caller input
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ConflictError indicates the operation would violate a workflow
// invariant, such as a second pending request for the same user
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// NotFoundError indicates the referenced entity does not exist or is not
// in the state the operation expects
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return e.Msg
}
