package apperrors

// ServiceError is a failure delivered as a value on an error stream
// instead of being thrown across a command boundary. Exactly one of
// Message or Err is set.
type ServiceError struct {
	Message string
	Err     error
}

func WithMessage(msg string) ServiceError {
	return ServiceError{Message: msg}
}

func WithError(err error) ServiceError {
	return ServiceError{Err: err}
}

func (e ServiceError) String() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}
