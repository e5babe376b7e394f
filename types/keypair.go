package types

import (
	"github.com/alexjba/keycard-go/apdu"
)

var TagKeyPairTemplate = apdu.Tag{0xA1}

// KeyPair is a key exported from the card. Any of the fields can be empty
// depending on the export options.
type KeyPair struct {
	pubKey    []byte
	privKey   []byte
	chainCode []byte
}

func ParseKeyPair(resp []byte) (*KeyPair, error) {
	tpl, err := apdu.FindTag(resp, TagKeyPairTemplate)
	if err != nil {
		return nil, err
	}

	pubKey, err := apdu.FindTag(tpl, apdu.Tag{0x80})
	if err != nil {
		pubKey = nil
	}

	privKey, err := apdu.FindTag(tpl, apdu.Tag{0x81})
	if err != nil {
		privKey = nil
	}

	chainCode, err := apdu.FindTag(tpl, apdu.Tag{0x82})
	if err != nil {
		chainCode = nil
	}

	return &KeyPair{
		pubKey:    pubKey,
		privKey:   privKey,
		chainCode: chainCode,
	}, nil
}

func (kp *KeyPair) PubKey() []byte {
	return kp.pubKey
}

func (kp *KeyPair) PrivKey() []byte {
	return kp.privKey
}

func (kp *KeyPair) ChainCode() []byte {
	return kp.chainCode
}
