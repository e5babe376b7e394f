package identifiers

import (
	"fmt"
)

var (
	PackageAID = []byte{0xA0, 0x00, 0x00, 0x08, 0x04, 0x00, 0x01}

	KeycardAID      = []byte{0xA0, 0x00, 0x00, 0x08, 0x04, 0x00, 0x01, 0x01}
	NdefAID         = []byte{0xA0, 0x00, 0x00, 0x08, 0x04, 0x00, 0x01, 0x02}
	CashAID         = []byte{0xA0, 0x00, 0x00, 0x08, 0x04, 0x00, 0x01, 0x03}
	NdefInstanceAID = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}
	CashInstanceAID = []byte{0xA0, 0x00, 0x00, 0x08, 0x04, 0x00, 0x01, 0x03, 0x01}
)

const KeycardDefaultInstanceIndex = 1

// KeycardInstanceAID returns the AID of the Keycard applet instance at the given index.
func KeycardInstanceAID(index int) ([]byte, error) {
	if index < 0x01 || index > 0xFF {
		return nil, fmt.Errorf("keycard instance index must be between 1 and 255, got %d", index)
	}

	aid := make([]byte, len(KeycardAID)+1)
	copy(aid, KeycardAID)
	aid[len(KeycardAID)] = byte(index)

	return aid, nil
}
