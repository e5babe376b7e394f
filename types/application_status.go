package types

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/alexjba/keycard-go/apdu"
	"github.com/alexjba/keycard-go/derivationpath"
)

var ErrApplicationStatusTemplateNotFound = errors.New("application status template not found")

// ApplicationStatus is the parsed response of a GET STATUS command. Depending
// on the requested P1, either the retry counters or the current key path are
// populated.
type ApplicationStatus struct {
	PinRetryCount  int
	PUKRetryCount  int
	KeyInitialized bool
	Path           string
}

func ParseApplicationStatus(data []byte) (*ApplicationStatus, error) {
	tpl, err := apdu.FindTag(data, TagApplicationStatusTemplate)
	if err != nil {
		return parseKeyPathStatus(data)
	}

	appStatus := &ApplicationStatus{}

	if pinRetryCount, err := apdu.FindTag(tpl, apdu.Tag{0x02}); err == nil && len(pinRetryCount) == 1 {
		appStatus.PinRetryCount = int(pinRetryCount[0])
	}

	if pukRetryCount, err := apdu.FindTagN(tpl, 1, apdu.Tag{0x02}); err == nil && len(pukRetryCount) == 1 {
		appStatus.PUKRetryCount = int(pukRetryCount[0])
	}

	if keyInitialized, err := apdu.FindTag(tpl, apdu.Tag{0x01}); err == nil {
		if bytes.Equal(keyInitialized, []byte{0xFF}) {
			appStatus.KeyInitialized = true
		}
	}

	return appStatus, nil
}

func parseKeyPathStatus(data []byte) (*ApplicationStatus, error) {
	appStatus := &ApplicationStatus{}

	buf := bytes.NewBuffer(data)
	rawPath := make([]uint32, buf.Len()/4)
	if err := binary.Read(buf, binary.BigEndian, &rawPath); err != nil {
		return nil, err
	}

	appStatus.Path = derivationpath.Encode(rawPath)

	return appStatus, nil
}
