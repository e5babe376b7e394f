package apdu

import (
	"testing"

	"github.com/alexjba/keycard-go/hexutils"
	"github.com/stretchr/testify/assert"
)

func TestCommandSerialize(t *testing.T) {
	cmd := NewCommand(0x80, 0xA4, 0x04, 0x00, hexutils.HexToBytes("A000000804000101"))
	raw, err := cmd.Serialize()
	assert.NoError(t, err)
	assert.Equal(t, hexutils.HexToBytes("80 A4 04 00 08 A0 00 00 08 04 00 01 01"), raw)
}

func TestCommandSerializeWithoutData(t *testing.T) {
	cmd := NewCommand(0x00, 0x14, 0x00, 0x00, []byte{})
	raw, err := cmd.Serialize()
	assert.NoError(t, err)
	assert.Equal(t, hexutils.HexToBytes("00 14 00 00"), raw)
}

func TestCommandSerializeWithLe(t *testing.T) {
	cmd := NewCommand(0x80, 0xA4, 0x04, 0x00, hexutils.HexToBytes("A000000804000101"))
	cmd.SetLe(0)
	raw, err := cmd.Serialize()
	assert.NoError(t, err)
	assert.Equal(t, hexutils.HexToBytes("80 A4 04 00 08 A0 00 00 08 04 00 01 01 00"), raw)

	required, le := cmd.Le()
	assert.True(t, required)
	assert.Equal(t, uint8(0), le)
}

func TestCommandSerializeLeOnly(t *testing.T) {
	cmd := NewCommand(0x00, 0xC0, 0x00, 0x00, nil)
	cmd.SetLe(0x10)
	raw, err := cmd.Serialize()
	assert.NoError(t, err)
	assert.Equal(t, hexutils.HexToBytes("00 C0 00 00 10"), raw)
}
