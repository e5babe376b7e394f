package globalplatform

import (
	"github.com/alexjba/keycard-go/apdu"
)

// NewCommandSelect returns a SELECT by name command for the given AID.
func NewCommandSelect(aid []byte) *apdu.Command {
	return apdu.NewCommand(
		ClaISO7816,
		InsSelect,
		uint8(0x04),
		uint8(0x00),
		aid,
	)
}

// NewCommandGetResponse returns a GET RESPONSE command asking for length bytes.
func NewCommandGetResponse(length uint8) *apdu.Command {
	c := apdu.NewCommand(
		ClaISO7816,
		InsGetResponse,
		uint8(0x00),
		uint8(0x00),
		nil,
	)

	c.SetLe(length)

	return c
}
