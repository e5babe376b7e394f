package types

import (
	"bytes"
	"errors"

	"github.com/alexjba/keycard-go/apdu"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	TagSignatureTemplate    = apdu.Tag{0xA0}
	TagRecoverableSignature = apdu.Tag{0x80}
)

var ErrInvalidSignature = errors.New("invalid signature")

// Signature is an ECDSA signature produced by the card, with the recovery id
// and the signing public key already resolved.
type Signature struct {
	pubKey []byte
	r      []byte
	s      []byte
	v      byte
}

// ParseSignature parses a SIGN response. Recent applets answer with the
// 65-byte r, s, v sequence under tag 0x80; older ones wrap a DER signature
// and the signing public key in template 0xA0. The template is probed first
// because tag 0x80 doubles as its public key tag.
func ParseSignature(message, resp []byte) (*Signature, error) {
	if template, err := apdu.FindTag(resp, TagSignatureTemplate); err == nil {
		return parseSignatureTemplate(message, template)
	}

	sig, err := apdu.FindTag(resp, TagRecoverableSignature)
	if err != nil {
		return nil, err
	}

	return ParseRecoverableSignature(message, sig)
}

// ParseRecoverableSignature parses the 65-byte r, s, v signature form and
// recovers the signing public key from message.
func ParseRecoverableSignature(message, sig []byte) (*Signature, error) {
	if len(sig) != 65 {
		return nil, ErrInvalidSignature
	}

	pubKey, err := ethcrypto.Ecrecover(message, sig)
	if err != nil {
		return nil, err
	}

	return &Signature{
		pubKey: pubKey,
		r:      sig[0:32],
		s:      sig[32:64],
		v:      sig[64],
	}, nil
}

// DERSignatureToRS extracts the r and s scalars from a DER encoded
// signature, trimming any leading zero bytes down to 32.
func DERSignatureToRS(tlv []byte) ([]byte, []byte, error) {
	r, err := apdu.FindTagN(tlv, 0, apdu.Tag{0x30}, apdu.Tag{0x02})
	if err != nil {
		return nil, nil, err
	}

	s, err := apdu.FindTagN(tlv, 1, apdu.Tag{0x30}, apdu.Tag{0x02})
	if err != nil {
		return nil, nil, err
	}

	return trimScalar(r), trimScalar(s), nil
}

func (s *Signature) PubKey() []byte {
	return s.pubKey
}

func (s *Signature) R() []byte {
	return s.r
}

func (s *Signature) S() []byte {
	return s.s
}

func (s *Signature) V() byte {
	return s.v
}

func parseSignatureTemplate(message, template []byte) (*Signature, error) {
	pubKey, err := apdu.FindTag(template, apdu.Tag{0x80})
	if err != nil {
		return nil, err
	}

	r, s, err := DERSignatureToRS(template)
	if err != nil {
		return nil, err
	}

	v, err := calculateV(message, pubKey, r, s)
	if err != nil {
		return nil, err
	}

	return &Signature{
		pubKey: pubKey,
		r:      r,
		s:      s,
		v:      v,
	}, nil
}

// calculateV finds the recovery id by trying all four candidates against the
// public key the card reported.
func calculateV(message, pubKey, r, s []byte) (byte, error) {
	sig := make([]byte, 65)
	copy(sig, r)
	copy(sig[32:], s)

	for v := byte(0); v < 4; v++ {
		sig[64] = v

		rec, err := ethcrypto.Ecrecover(message, sig)
		if err != nil {
			return 0, err
		}

		if len(pubKey) == 33 {
			rec = compressPublicKey(rec)
		}

		if bytes.Equal(pubKey, rec) {
			return v, nil
		}
	}

	return 0, ErrInvalidSignature
}

func compressPublicKey(pubKey []byte) []byte {
	if len(pubKey) == 33 {
		return pubKey
	}

	compressed := make([]byte, 33)
	copy(compressed[1:], pubKey[1:33])
	if pubKey[64]&1 == 1 {
		compressed[0] = 0x03
	} else {
		compressed[0] = 0x02
	}

	return compressed
}

func trimScalar(scalar []byte) []byte {
	if len(scalar) > 32 {
		scalar = scalar[len(scalar)-32:]
	}

	return scalar
}
