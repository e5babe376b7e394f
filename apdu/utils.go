package apdu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Tag is a BER-TLV tag, one or more bytes long.
type Tag []byte

// ErrTagNotFound is an error returned if a tag is not found in a TLV sequence.
type ErrTagNotFound struct {
	tag Tag
}

// Error implements the error interface
func (e *ErrTagNotFound) Error() string {
	return fmt.Sprintf("tag %x not found", e.tag)
}

var (
	// ErrUnsupportedLength is returned when a TLV length is 0x80 (indefinite form).
	ErrUnsupportedLength = errors.New("length cannot be 0x80")

	// ErrLengthTooBig is returned when a TLV length is encoded in more than 3 bytes.
	ErrLengthTooBig = errors.New("length cannot be more than 3 bytes")
)

// FindTag searches for a tag value within a TLV sequence.
func FindTag(raw []byte, tags ...Tag) ([]byte, error) {
	return findTag(raw, 0, tags...)
}

// FindTagN searches for a tag value within a TLV sequence and returns the n occurrence
func FindTagN(raw []byte, n int, tags ...Tag) ([]byte, error) {
	return findTag(raw, n, tags...)
}

func findTag(raw []byte, occurrence int, tags ...Tag) ([]byte, error) {
	if len(tags) == 0 {
		return raw, nil
	}

	target := tags[0]
	buf := bytes.NewBuffer(raw)

	var (
		tag    Tag
		length uint32
		err    error
	)

	for {
		tag, err = parseTag(buf)
		switch {
		case err == io.EOF:
			return []byte{}, &ErrTagNotFound{target}
		case err != nil:
			return nil, err
		}

		length, err = ParseLength(buf)
		if err != nil {
			return nil, err
		}

		data := make([]byte, length)
		if length != 0 {
			_, err = buf.Read(data)
			if err != nil {
				return nil, err
			}
		}

		if bytes.Equal(tag, target) {
			// if it's the last tag in the search path, we start counting the occurrences
			if len(tags) == 1 && occurrence > 0 {
				occurrence--
				continue
			}

			if len(tags) == 1 {
				return data, nil
			}

			return findTag(data, occurrence, tags[1:]...)
		}
	}
}

// ParseLength parses a BER-TLV length from buf, supporting the short form and
// long forms up to 3 length bytes.
func ParseLength(buf *bytes.Buffer) (uint32, error) {
	length, err := buf.ReadByte()
	if err != nil {
		return 0, err
	}

	if length == 0x80 {
		return 0, ErrUnsupportedLength
	}

	if length > 0x80 {
		lengthSize := length - 0x80
		if lengthSize > 3 {
			return 0, ErrLengthTooBig
		}

		data := make([]byte, lengthSize)
		_, err = buf.Read(data)
		if err != nil {
			return 0, err
		}

		num := make([]byte, 4)
		copy(num[4-int(lengthSize):], data)

		return binary.BigEndian.Uint32(num), nil
	}

	return uint32(length), nil
}

// WriteLength writes length to buf in BER-TLV encoding.
func WriteLength(buf *bytes.Buffer, length uint32) error {
	switch {
	case length < 0x80:
		buf.WriteByte(byte(length))
	case length < 0x100:
		buf.WriteByte(0x81)
		buf.WriteByte(byte(length))
	case length < 0x10000:
		buf.WriteByte(0x82)
		buf.WriteByte(byte(length >> 8))
		buf.WriteByte(byte(length))
	case length < 0x1000000:
		buf.WriteByte(0x83)
		buf.WriteByte(byte(length >> 16))
		buf.WriteByte(byte(length >> 8))
		buf.WriteByte(byte(length))
	default:
		return ErrLengthTooBig
	}

	return nil
}

func parseTag(buf *bytes.Buffer) (Tag, error) {
	tag := make(Tag, 0)

	b, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}

	tag = append(tag, b)
	if b&0x1F != 0x1F {
		return tag, nil
	}

	for {
		b, err = buf.ReadByte()
		if err != nil {
			return nil, err
		}

		tag = append(tag, b)

		if b&0x80 != 0x80 {
			return tag, nil
		}
	}
}
