package remote

// TransportError reports a failure of the HTTP exchange itself: connection
// refused, timeout, cancelled request, unreadable body or a non-2xx status.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "HTTP error occurred: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// GenericError reports any other failure while sending a message or
// interpreting the reply.
type GenericError struct {
	Err error
}

func (e *GenericError) Error() string {
	return "Error sending message: " + e.Err.Error()
}

func (e *GenericError) Unwrap() error { return e.Err }
