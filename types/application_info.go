package types

import (
	"errors"

	"github.com/alexjba/keycard-go/apdu"
)

var ErrWrongApplicationInfoTemplate = errors.New("wrong application info template")

var (
	TagSelectResponsePreInitialized = apdu.Tag{0x80}
	TagApplicationStatusTemplate    = apdu.Tag{0xA3}
	TagApplicationInfoTemplate      = apdu.Tag{0xA4}
	TagApplicationInfoCapabilities  = apdu.Tag{0x8D}
)

// Capability is a bitmask of the features supported by the applet.
type Capability uint8

const (
	CapabilitySecureChannel Capability = 1 << iota
	CapabilityKeyManagement
	CapabilityCredentialsManagement
	CapabilityNDEF
)

const CapabilityAll = CapabilitySecureChannel | CapabilityKeyManagement | CapabilityCredentialsManagement | CapabilityNDEF

type ApplicationInfo struct {
	Installed              bool
	Initialized            bool
	InstanceUID            []byte
	SecureChannelPublicKey []byte
	Version                []byte
	AvailableSlots         []byte
	// KeyUID is the sha256 of the master public key on the card.
	// It's empty if the card doesn't contain any key.
	KeyUID       []byte
	Capabilities Capability
}

// HasCapability returns true when the card supports all capabilities in c.
func (a *ApplicationInfo) HasCapability(c Capability) bool {
	return a.Capabilities&c == c
}

func (a *ApplicationInfo) HasSecureChannelCapability() bool {
	return a.HasCapability(CapabilitySecureChannel)
}

func (a *ApplicationInfo) HasKeyManagementCapability() bool {
	return a.HasCapability(CapabilityKeyManagement)
}

func (a *ApplicationInfo) HasCredentialsManagementCapability() bool {
	return a.HasCapability(CapabilityCredentialsManagement)
}

func (a *ApplicationInfo) HasNDEFCapability() bool {
	return a.HasCapability(CapabilityNDEF)
}

// ParseApplicationInfo parses a SELECT response. Cards waiting to be
// initialized answer with their secure channel public key alone, initialized
// cards with the full application info template.
func ParseApplicationInfo(data []byte) (*ApplicationInfo, error) {
	if len(data) == 0 {
		return nil, ErrWrongApplicationInfoTemplate
	}

	info := &ApplicationInfo{
		Installed: true,
	}

	if data[0] == TagSelectResponsePreInitialized[0] {
		if len(data) < 2 {
			return nil, ErrWrongApplicationInfoTemplate
		}

		info.SecureChannelPublicKey = data[2:]
		info.Capabilities = CapabilitySecureChannel | CapabilityCredentialsManagement

		return info, nil
	}

	info.Initialized = true

	if data[0] != TagApplicationInfoTemplate[0] {
		return nil, ErrWrongApplicationInfoTemplate
	}

	instanceUID, err := apdu.FindTag(data, TagApplicationInfoTemplate, apdu.Tag{0x8F})
	if err != nil {
		return nil, err
	}

	pubKey, err := apdu.FindTag(data, TagApplicationInfoTemplate, apdu.Tag{0x80})
	if err != nil {
		return nil, err
	}

	appVersion, err := apdu.FindTag(data, TagApplicationInfoTemplate, apdu.Tag{0x02})
	if err != nil {
		return nil, err
	}

	availableSlots, err := apdu.FindTagN(data, 1, TagApplicationInfoTemplate, apdu.Tag{0x02})
	if err != nil {
		return nil, err
	}

	keyUID, err := apdu.FindTagN(data, 0, TagApplicationInfoTemplate, apdu.Tag{0x8E})
	if err != nil {
		return nil, err
	}

	info.InstanceUID = instanceUID
	info.SecureChannelPublicKey = pubKey
	info.Version = appVersion
	info.AvailableSlots = availableSlots
	info.KeyUID = keyUID

	// older applets don't report capabilities and support everything
	capabilities, err := apdu.FindTag(data, TagApplicationInfoTemplate, TagApplicationInfoCapabilities)
	if err == nil && len(capabilities) == 1 {
		info.Capabilities = Capability(capabilities[0])
	} else {
		info.Capabilities = CapabilityAll
	}

	return info, nil
}
