package types

import (
	"bytes"
	"errors"
	"io"
	"sort"

	"github.com/alexjba/keycard-go/apdu"
)

const (
	metadataVersion = 1
	maxCardNameLen  = 20

	// path indexes ride the BER-TLV length codec, which caps at 3 bytes
	maxPathIndex = 0xFFFFFF
)

var (
	ErrInvalidMetadataVersion = errors.New("invalid version")
	ErrCardNameTooLong        = errors.New("name longer than 20 chars")
	ErrPathIndexTooLarge      = errors.New("path index does not fit the metadata format")
)

// Metadata is the wallet metadata kept in the card public data slot: a
// display name and the set of wallet path indexes in use. Consecutive
// indexes are stored on the wire as (start, count) runs.
type Metadata struct {
	name  string
	paths []uint32
}

func EmptyMetadata() *Metadata {
	return &Metadata{}
}

func NewMetadata(name string, paths []uint32) (*Metadata, error) {
	m := EmptyMetadata()

	if err := m.SetName(name); err != nil {
		return nil, err
	}

	for _, path := range paths {
		if err := m.AddPath(path); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func ParseMetadata(data []byte) (*Metadata, error) {
	buf := bytes.NewBuffer(data)

	header, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}

	if header>>5 != metadataVersion {
		return nil, ErrInvalidMetadataVersion
	}

	m := EmptyMetadata()
	m.name = string(buf.Next(int(header & 0x1F)))

	for {
		start, err := apdu.ParseLength(buf)
		if err == io.EOF {
			return m, nil
		} else if err != nil {
			return nil, err
		}

		count, err := apdu.ParseLength(buf)
		if err != nil {
			return nil, err
		}

		for i := start; i <= start+count; i++ {
			if err := m.AddPath(i); err != nil {
				return nil, err
			}
		}
	}
}

func (m *Metadata) Name() string {
	return m.name
}

func (m *Metadata) SetName(name string) error {
	if len(name) > maxCardNameLen {
		return ErrCardNameTooLong
	}

	m.name = name

	return nil
}

// Paths returns the path indexes in ascending order.
func (m *Metadata) Paths() []uint32 {
	return append([]uint32{}, m.paths...)
}

// AddPath inserts path keeping the index list sorted and free of duplicates.
func (m *Metadata) AddPath(path uint32) error {
	if path > maxPathIndex {
		return ErrPathIndexTooLarge
	}

	i := sort.Search(len(m.paths), func(n int) bool { return m.paths[n] >= path })
	if i < len(m.paths) && m.paths[i] == path {
		return nil
	}

	m.paths = append(m.paths, 0)
	copy(m.paths[i+1:], m.paths[i:])
	m.paths[i] = path

	return nil
}

func (m *Metadata) RemovePath(path uint32) {
	i := sort.Search(len(m.paths), func(n int) bool { return m.paths[n] >= path })
	if i < len(m.paths) && m.paths[i] == path {
		m.paths = append(m.paths[:i], m.paths[i+1:]...)
	}
}

// Serialize encodes the metadata for STORE DATA. AddPath bounds every index,
// so the length encoding cannot fail here.
func (m *Metadata) Serialize() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(metadataVersion<<5 | byte(len(m.name)))
	buf.WriteString(m.name)

	if len(m.paths) == 0 {
		return buf.Bytes()
	}

	start := m.paths[0]
	count := uint32(0)

	for _, path := range m.paths[1:] {
		if path == start+count+1 {
			count++
			continue
		}

		apdu.WriteLength(buf, start)
		apdu.WriteLength(buf, count)
		start = path
		count = 0
	}

	apdu.WriteLength(buf, start)
	apdu.WriteLength(buf, count)

	return buf.Bytes()
}
