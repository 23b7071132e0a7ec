package alerts

// DecodeError reports a raster that is unreadable or has the wrong shape.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "alerts: " + e.Reason
	}
	return "alerts: " + e.Reason + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
