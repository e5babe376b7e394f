package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"

	"github.com/ethereum/go-ethereum/common/math"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const (
	pairingTokenSalt = "Keycard Pairing Password Salt"
	pairingTokenIter = 50000
	blockSize        = 16
)

// ErrInvalidCardCryptogram is returned by VerifyCryptogram when the card fails
// to prove knowledge of the pairing password.
var ErrInvalidCardCryptogram = errors.New("invalid card cryptogram")

var nullBytes16 = make([]byte, blockSize)

// GenerateECDHSharedSecret generates a shared secret between priv and pub on
// the secp256k1 curve. The X coordinate is left padded to the 32-byte field
// size, since it keys AES-256 directly.
func GenerateECDHSharedSecret(priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) []byte {
	x, _ := ethcrypto.S256().ScalarMult(pub.X, pub.Y, priv.D.Bytes())
	return math.PaddedBigBytes(x, 32)
}

// GeneratePairingToken derives the 32-byte pairing token from the pairing password.
// Password and salt are NFKD normalized before the key derivation.
func GeneratePairingToken(pass string) []byte {
	return pbkdf2.Key(norm.NFKD.Bytes([]byte(pass)), norm.NFKD.Bytes([]byte(pairingTokenSalt)), pairingTokenIter, 32, sha256.New)
}

// VerifyCryptogram checks the cryptogram returned by the card during pairing.
// On success it returns the pairing token derived from pairingPass.
func VerifyCryptogram(challenge []byte, pairingPass string, cardCryptogram []byte) ([]byte, error) {
	pairingToken := GeneratePairingToken(pairingPass)

	h := sha256.New()
	h.Write(pairingToken)
	h.Write(challenge)
	expectedCryptogram := h.Sum(nil)

	if !bytes.Equal(expectedCryptogram, cardCryptogram) {
		return nil, ErrInvalidCardCryptogram
	}

	return pairingToken, nil
}

// OneShotEncrypt encrypts data with an AES-256-CBC one-shot under the raw ECDH
// secret, using a random IV. The output is the concatenation of the public key
// length, the public key, the IV and the ciphertext.
func OneShotEncrypt(pubKeyData, secret, data []byte) ([]byte, error) {
	data = appendPadding(blockSize, data)

	iv := make([]byte, blockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}

	mode := cipher.NewCBCEncrypter(block, iv)
	encrypted := make([]byte, len(data))
	mode.CryptBlocks(encrypted, data)

	encapsulated := append([]byte{byte(len(pubKeyData))}, pubKeyData...)
	encapsulated = append(encapsulated, iv...)
	encapsulated = append(encapsulated, encrypted...)

	return encapsulated, nil
}

// DeriveSessionKeys derives the session encryption and MAC keys from the ECDH
// secret, the pairing key and the card response to OPEN SECURE CHANNEL. The
// returned values are the encryption key, the MAC key and the initial IV.
func DeriveSessionKeys(secret, pairingKey, cardData []byte) ([]byte, []byte, []byte) {
	salt := cardData[:32]
	iv := cardData[32:48]

	h := sha512.New()
	h.Write(secret)
	h.Write(pairingKey)
	h.Write(salt)
	data := h.Sum(nil)

	encKey := data[:32]
	macKey := data[32:]

	return encKey, macKey, iv
}

// EncryptData encrypts data with AES-256-CBC using encKey and iv.
func EncryptData(data []byte, encKey []byte, iv []byte) ([]byte, error) {
	data = appendPadding(blockSize, data)

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}

	mode := cipher.NewCBCEncrypter(block, iv)
	encData := make([]byte, len(data))
	mode.CryptBlocks(encData, data)

	return encData, nil
}

// DecryptData decrypts data with AES-256-CBC using encKey and iv and removes the padding.
func DecryptData(data []byte, encKey []byte, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}

	mode := cipher.NewCBCDecrypter(block, iv)
	decData := make([]byte, len(data))
	mode.CryptBlocks(decData, data)

	return removePadding(blockSize, decData), nil
}

// CalculateMac calculates the MAC of an APDU. meta is a 16-byte block holding
// the command header and lengths, data the encrypted payload. Both are
// CBC-encrypted under macKey as a single chain with a null IV and the MAC is
// the second to last ciphertext block, the padding block being discarded.
func CalculateMac(meta []byte, data []byte, macKey []byte) ([]byte, error) {
	data = appendPadding(blockSize, data)

	block, err := aes.NewCipher(macKey)
	if err != nil {
		return nil, err
	}

	encData := make([]byte, len(meta)+len(data))
	mode := cipher.NewCBCEncrypter(block, nullBytes16)
	mode.CryptBlocks(encData, meta)
	mode.CryptBlocks(encData[len(meta):], data)

	mac := encData[len(encData)-32 : len(encData)-16]

	return mac, nil
}

func appendPadding(blockSize int, data []byte) []byte {
	paddingSize := blockSize - (len(data)+1)%blockSize
	zeroes := bytes.Repeat([]byte{0x00}, paddingSize)
	padding := append([]byte{0x80}, zeroes...)

	return append(data, padding...)
}

func removePadding(blockSize int, data []byte) []byte {
	i := len(data) - 1
	for ; i > len(data)-blockSize-1; i-- {
		if data[i] == 0x80 {
			break
		}
	}

	return data[:i]
}
