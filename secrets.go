package keycard

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/alexjba/keycard-go/crypto"
)

const (
	maxPINNumber = int64(999999)
	maxPUKNumber = int64(999999999999)

	pairingPassLen   = 12
	pairingPassChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrInvalidPIN             = errors.New("PIN must be 6 digits")
	ErrInvalidPUK             = errors.New("PUK must be 12 digits")
	ErrInvalidPairingPassword = errors.New("pairing password must be at least 5 characters")
)

// Secrets holds the credentials used to initialize and pair with a card.
type Secrets struct {
	pin          string
	puk          string
	pairingPass  string
	pairingToken []byte
}

// NewSecrets creates a Secrets and derives the pairing token from pairingPass.
func NewSecrets(pin, puk, pairingPass string) *Secrets {
	return &Secrets{
		pin:          pin,
		puk:          puk,
		pairingPass:  pairingPass,
		pairingToken: generatePairingToken(pairingPass),
	}
}

// GenerateSecrets creates a Secrets with a random PIN, PUK and pairing
// password.
func GenerateSecrets() (*Secrets, error) {
	pairingPass, err := generatePairingPass()
	if err != nil {
		return nil, err
	}

	pin, err := rand.Int(rand.Reader, big.NewInt(maxPINNumber))
	if err != nil {
		return nil, err
	}

	puk, err := rand.Int(rand.Reader, big.NewInt(maxPUKNumber))
	if err != nil {
		return nil, err
	}

	return NewSecrets(
		fmt.Sprintf("%06d", pin.Int64()),
		fmt.Sprintf("%012d", puk.Int64()),
		pairingPass,
	), nil
}

func (s *Secrets) Pin() string {
	return s.pin
}

func (s *Secrets) Puk() string {
	return s.puk
}

func (s *Secrets) PairingPass() string {
	return s.pairingPass
}

func (s *Secrets) PairingToken() []byte {
	return s.pairingToken
}

// Validate checks the secrets against the applet requirements. It runs before
// any card communication.
func (s *Secrets) Validate() error {
	if !isDigitsOfLen(s.pin, 6) {
		return ErrInvalidPIN
	}

	if !isDigitsOfLen(s.puk, 12) {
		return ErrInvalidPUK
	}

	if len(s.pairingPass) < 5 {
		return ErrInvalidPairingPassword
	}

	return nil
}

func isDigitsOfLen(s string, l int) bool {
	if len(s) != l {
		return false
	}

	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}

func generatePairingPass() (string, error) {
	chars := make([]byte, pairingPassLen)
	for i := range chars {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pairingPassChars))))
		if err != nil {
			return "", err
		}

		chars[i] = pairingPassChars[n.Int64()]
	}

	return string(chars), nil
}

func generatePairingToken(pass string) []byte {
	return crypto.GeneratePairingToken(pass)
}
