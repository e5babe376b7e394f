package apdu

import "fmt"

// ErrBadResponse defines an error containing the returned status word and a descriptive message.
type ErrBadResponse struct {
	Sw      uint16
	message string
}

// NewErrBadResponse returns a new ErrBadResponse with the given sw and message.
func NewErrBadResponse(sw uint16, message string) *ErrBadResponse {
	return &ErrBadResponse{
		Sw:      sw,
		message: message,
	}
}

// Error implements the error interface
func (e *ErrBadResponse) Error() string {
	return fmt.Sprintf("bad response %x: %s", e.Sw, e.message)
}
