package extract

import "errors"

var (
	// ErrNotAPerson is returned when the page denotes an unknown or
	// placeholder person. It is a normal dead end, not a failure.
	ErrNotAPerson = errors.New("page does not denote a person")

	// ErrBlocked is returned when the page metadata shows the response was
	// served to a client the site considers a robot. The record is
	// abandoned rather than returned half built.
	ErrBlocked = errors.New("page served to an automated client")
)
