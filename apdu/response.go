package apdu

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrBadRawResponse is an error returned by ParseResponse in case the response data is shorter than 2 bytes.
var ErrBadRawResponse = errors.New("response data must be at least 2 bytes")

const (
	// SwOK is the success status word.
	SwOK = uint16(0x9000)
)

// Response represents an apdu response
type Response struct {
	Data []byte
	Sw1  uint8
	Sw2  uint8
	Sw   uint16
}

// ParseResponse parses a raw response and returns a Response
func ParseResponse(data []byte) (*Response, error) {
	r := &Response{}
	return r, r.deserialize(data)
}

// IsOK returns true if the response status word is 0x9000
func (r *Response) IsOK() bool {
	return r.Sw == SwOK
}

func (r *Response) deserialize(data []byte) error {
	if len(data) < 2 {
		return ErrBadRawResponse
	}

	r.Data = make([]byte, len(data)-2)
	buf := bytes.NewReader(data)

	if _, err := buf.Read(r.Data); err != nil {
		return err
	}
	if err := binary.Read(buf, binary.BigEndian, &r.Sw1); err != nil {
		return err
	}
	if err := binary.Read(buf, binary.BigEndian, &r.Sw2); err != nil {
		return err
	}

	r.Sw = (uint16(r.Sw1) << 8) | uint16(r.Sw2)

	return nil
}
