package keycard

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"sync"

	"github.com/alexjba/keycard-go/apdu"
	"github.com/alexjba/keycard-go/crypto"
	"github.com/alexjba/keycard-go/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrSecureChannelNotOpen  = errors.New("secure channel not open")
	ErrInvalidResponseMAC    = errors.New("invalid response MAC")
	ErrInvalidResponseLength = errors.New("invalid response length")
	ErrNoECDHSecret          = errors.New("ECDH secret not generated")
)

type SecureChannel struct {
	c         types.Channel
	mu        sync.Mutex
	open      bool
	secret    []byte
	publicKey *ecdsa.PublicKey
	encKey    []byte
	macKey    []byte
	iv        []byte
}

func NewSecureChannel(c types.Channel) *SecureChannel {
	return &SecureChannel{
		c: c,
	}
}

// GenerateSecret creates a fresh ephemeral keypair and derives the ECDH
// shared secret from the card public key found in the SELECT response.
func (sc *SecureChannel) GenerateSecret(cardPubKeyData []byte) error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}

	cardPubKey, err := ethcrypto.UnmarshalPubkey(cardPubKeyData)
	if err != nil {
		return err
	}

	sc.publicKey = &key.PublicKey
	sc.secret = crypto.GenerateECDHSharedSecret(key, cardPubKey)

	return nil
}

func (sc *SecureChannel) Init(iv, encKey, macKey []byte) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.iv = iv
	sc.encKey = encKey
	sc.macKey = macKey
	sc.open = true
}

// Reset closes the channel and wipes the session keys. The ephemeral keypair
// and the ECDH secret are kept for a later reopen.
func (sc *SecureChannel) Reset() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.open = false

	for _, k := range [][]byte{sc.iv, sc.encKey, sc.macKey} {
		for i := range k {
			k[i] = 0
		}
	}

	sc.iv = nil
	sc.encKey = nil
	sc.macKey = nil
}

func (sc *SecureChannel) IsOpen() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.open
}

func (sc *SecureChannel) Secret() []byte {
	return sc.secret
}

func (sc *SecureChannel) PublicKey() *ecdsa.PublicKey {
	return sc.publicKey
}

func (sc *SecureChannel) RawPublicKey() []byte {
	if sc.publicKey == nil {
		return nil
	}

	return ethcrypto.FromECDSAPub(sc.publicKey)
}

// Send encrypts and MACs cmd and decrypts the card response. The IV chains
// from one exchange into the next, so concurrent callers are serialized.
// cmd itself is never modified and can be resubmitted as is.
func (sc *SecureChannel) Send(cmd *apdu.Command) (*apdu.Response, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.open {
		return nil, ErrSecureChannelNotOpen
	}

	encData, err := crypto.EncryptData(cmd.Data, sc.encKey, sc.iv)
	if err != nil {
		return nil, err
	}

	meta := []byte{cmd.Cla, cmd.Ins, cmd.P1, cmd.P2, byte(len(encData) + 16), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if err = sc.updateIV(meta, encData); err != nil {
		return nil, err
	}

	wireData := append(append([]byte{}, sc.iv...), encData...)
	resp, err := sc.c.Send(apdu.NewCommand(cmd.Cla, cmd.Ins, cmd.P1, cmd.P2, wireData))
	if err != nil {
		return nil, err
	}

	// The card always answers 0x9000 at the transport level once the channel
	// is open. The real status word rides inside the ciphertext.
	if resp.Sw != apdu.SwOK {
		return nil, apdu.NewErrBadResponse(resp.Sw, "unexpected sw in secure channel")
	}

	if len(resp.Data) < 32 || len(resp.Data)%16 != 0 {
		return nil, ErrInvalidResponseLength
	}

	rmeta := []byte{byte(len(resp.Data)), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	rmac := resp.Data[:len(sc.iv)]
	rdata := resp.Data[len(sc.iv):]

	plainData, err := crypto.DecryptData(rdata, sc.encKey, sc.iv)
	if err != nil {
		return nil, err
	}

	if err = sc.updateIV(rmeta, rdata); err != nil {
		return nil, err
	}

	if !bytes.Equal(sc.iv, rmac) {
		return nil, ErrInvalidResponseMAC
	}

	return apdu.ParseResponse(plainData)
}

func (sc *SecureChannel) updateIV(meta, data []byte) error {
	mac, err := crypto.CalculateMac(meta, data, sc.macKey)
	if err != nil {
		return err
	}

	sc.iv = mac

	return nil
}

// OneShotEncrypt encrypts the INIT payload directly under the ECDH secret,
// before any session keys exist.
func (sc *SecureChannel) OneShotEncrypt(secrets *Secrets) ([]byte, error) {
	if sc.secret == nil {
		return nil, ErrNoECDHSecret
	}

	pubKeyData := ethcrypto.FromECDSAPub(sc.publicKey)
	data := append([]byte(secrets.Pin()), []byte(secrets.Puk())...)
	data = append(data, secrets.PairingToken()...)

	return crypto.OneShotEncrypt(pubKeyData, sc.secret, data)
}
