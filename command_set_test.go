package keycard

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/alexjba/keycard-go/apdu"
	"github.com/alexjba/keycard-go/crypto"
	"github.com/alexjba/keycard-go/globalplatform"
	"github.com/alexjba/keycard-go/hexutils"
	"github.com/alexjba/keycard-go/identifiers"
	"github.com/alexjba/keycard-go/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

type fakeChannel struct {
	sent    []*apdu.Command
	handler func(cmd *apdu.Command) (*apdu.Response, error)
}

func (fc *fakeChannel) Send(cmd *apdu.Command) (*apdu.Response, error) {
	fc.sent = append(fc.sent, cmd)
	if fc.handler == nil {
		return nil, errors.New("unexpected command")
	}

	return fc.handler(cmd)
}

func respOK(data []byte) (*apdu.Response, error) {
	return apdu.ParseResponse(append(append([]byte{}, data...), 0x90, 0x00))
}

func respSw(sw uint16) (*apdu.Response, error) {
	return apdu.ParseResponse([]byte{byte(sw >> 8), byte(sw)})
}

func writeTLV(buf *bytes.Buffer, tag uint8, value []byte) {
	buf.WriteByte(tag)
	apdu.WriteLength(buf, uint32(len(value)))
	buf.Write(value)
}

func preInitSelectResponse(pubKey []byte) (*apdu.Response, error) {
	return respOK(append([]byte{0x80, byte(len(pubKey))}, pubKey...))
}

func initializedSelectResponse(pubKey []byte) (*apdu.Response, error) {
	tpl := new(bytes.Buffer)
	writeTLV(tpl, 0x8F, bytes.Repeat([]byte{0xAA}, 16))
	writeTLV(tpl, 0x80, pubKey)
	writeTLV(tpl, 0x02, []byte{0x03, 0x01})
	writeTLV(tpl, 0x02, []byte{0x05})
	writeTLV(tpl, 0x8E, bytes.Repeat([]byte{0xCC}, 32))

	data := new(bytes.Buffer)
	writeTLV(data, 0xA4, tpl.Bytes())

	return respOK(data.Bytes())
}

// newSessionCommandSet returns a CommandSet whose secure channel is already
// established against a card simulator.
func newSessionCommandSet(t *testing.T) (*CommandSet, *cardSimulator) {
	encKey := make([]byte, 32)
	macKey := make([]byte, 32)
	iv := make([]byte, 16)

	for _, b := range [][]byte{encKey, macKey, iv} {
		_, err := rand.Read(b)
		assert.NoError(t, err)
	}

	sim := newCardSimulator(encKey, macKey, iv)
	cs := NewCommandSet(sim)
	cs.sc.Init(append([]byte{}, iv...), append([]byte{}, encKey...), append([]byte{}, macKey...))

	return cs, sim
}

func TestCommandSetSelect(t *testing.T) {
	cardKey, err := ethcrypto.GenerateKey()
	assert.NoError(t, err)
	cardPubKey := ethcrypto.FromECDSAPub(&cardKey.PublicKey)

	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		assert.Equal(t, globalplatform.ClaISO7816, cmd.Cla)
		assert.Equal(t, uint8(0xA4), cmd.Ins)
		return preInitSelectResponse(cardPubKey)
	}

	cs := NewCommandSet(ch)
	assert.NoError(t, cs.Select())

	instanceAID, err := identifiers.KeycardInstanceAID(identifiers.KeycardDefaultInstanceIndex)
	assert.NoError(t, err)
	assert.Equal(t, instanceAID, ch.sent[0].Data)

	assert.True(t, cs.ApplicationInfo.Installed)
	assert.False(t, cs.ApplicationInfo.Initialized)
	assert.Equal(t, cardPubKey, cs.ApplicationInfo.SecureChannelPublicKey)
	assert.NotNil(t, cs.sc.Secret())
}

func TestCommandSetSelectInitialized(t *testing.T) {
	cardKey, err := ethcrypto.GenerateKey()
	assert.NoError(t, err)
	cardPubKey := ethcrypto.FromECDSAPub(&cardKey.PublicKey)

	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		return initializedSelectResponse(cardPubKey)
	}

	cs := NewCommandSet(ch)
	assert.NoError(t, cs.Select())
	assert.True(t, cs.ApplicationInfo.Initialized)
	assert.Equal(t, bytes.Repeat([]byte{0xAA}, 16), cs.ApplicationInfo.InstanceUID)
	assert.Equal(t, []byte{0x03, 0x01}, cs.ApplicationInfo.Version)
	assert.Equal(t, []byte{0x05}, cs.ApplicationInfo.AvailableSlots)
	assert.Equal(t, bytes.Repeat([]byte{0xCC}, 32), cs.ApplicationInfo.KeyUID)
	assert.NotNil(t, cs.sc.Secret())
}

func TestCommandSetPair(t *testing.T) {
	token := crypto.GeneratePairingToken("KeycardTest")
	cardChallenge := bytes.Repeat([]byte{0xC4}, 32)
	salt := bytes.Repeat([]byte{0x5A}, 32)

	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		assert.Equal(t, uint8(InsPair), cmd.Ins)

		switch cmd.P1 {
		case P1PairingFirstStep:
			h := sha256.New()
			h.Write(token)
			h.Write(cmd.Data)
			return respOK(append(h.Sum(nil), cardChallenge...))
		case P1PairingFinalStep:
			h := sha256.New()
			h.Write(token)
			h.Write(cardChallenge)
			assert.Equal(t, h.Sum(nil), cmd.Data)
			return respOK(append([]byte{0x01}, salt...))
		default:
			return nil, errors.New("unexpected p1")
		}
	}

	cs := NewCommandSet(ch)
	assert.NoError(t, cs.Pair("KeycardTest"))

	h := sha256.New()
	h.Write(token)
	h.Write(salt)
	assert.Equal(t, h.Sum(nil), cs.PairingInfo.Key)
	assert.Equal(t, 1, cs.PairingInfo.Index)
}

func TestCommandSetPairWrongPassword(t *testing.T) {
	token := crypto.GeneratePairingToken("KeycardTest")

	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		h := sha256.New()
		h.Write(token)
		h.Write(cmd.Data)
		return respOK(append(h.Sum(nil), bytes.Repeat([]byte{0xC4}, 32)...))
	}

	cs := NewCommandSet(ch)
	err := cs.Pair("WrongPassword")
	assert.Equal(t, crypto.ErrInvalidCardCryptogram, err)
	assert.Nil(t, cs.PairingInfo)
	assert.Equal(t, 1, len(ch.sent))
}

func TestCommandSetPairNoAvailableSlots(t *testing.T) {
	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		return respSw(SwNoAvailablePairingSlots)
	}

	cs := NewCommandSet(ch)
	assert.Equal(t, ErrNoAvailablePairingSlots, cs.Pair("KeycardTest"))
}

func TestCommandSetInit(t *testing.T) {
	cardKey, err := ethcrypto.GenerateKey()
	assert.NoError(t, err)
	cardPubKey := ethcrypto.FromECDSAPub(&cardKey.PublicKey)

	initialized := false
	var initPayload []byte

	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		switch {
		case cmd.Ins == 0xA4 && !initialized:
			return preInitSelectResponse(cardPubKey)
		case cmd.Ins == 0xA4:
			return initializedSelectResponse(cardPubKey)
		case cmd.Ins == InsInit:
			initPayload = cmd.Data
			initialized = true
			return respOK(nil)
		default:
			return nil, errors.New("unexpected command")
		}
	}

	cs := NewCommandSet(ch)
	assert.NoError(t, cs.Select())
	assert.Equal(t, 32, len(cs.sc.Secret()))

	secrets := NewSecrets("123456", "123456789012", "KeycardTest")
	sent := len(ch.sent)
	assert.NoError(t, cs.Init(secrets))

	// INIT plus the SELECT refreshing the new card state
	assert.Equal(t, sent+2, len(ch.sent))
	assert.True(t, cs.ApplicationInfo.Initialized)
	assert.False(t, bytes.Contains(initPayload, []byte(secrets.Pin())))

	keyLen := int(initPayload[0])
	hostPubKey, err := ethcrypto.UnmarshalPubkey(initPayload[1 : 1+keyLen])
	assert.NoError(t, err)

	secret := crypto.GenerateECDHSharedSecret(cardKey, hostPubKey)
	plainIV := initPayload[1+keyLen : 1+keyLen+16]
	plain, err := crypto.DecryptData(initPayload[1+keyLen+16:], secret, plainIV)
	assert.NoError(t, err)
	assert.Equal(t, append([]byte("123456123456789012"), secrets.PairingToken()...), plain)
}

func TestCommandSetInitValidation(t *testing.T) {
	ch := &fakeChannel{}
	cs := NewCommandSet(ch)

	assert.Equal(t, ErrInvalidPIN, cs.Init(NewSecrets("12345", "123456789012", "KeycardTest")))
	assert.Equal(t, ErrInvalidPUK, cs.Init(NewSecrets("123456", "12345678901", "KeycardTest")))
	assert.Equal(t, ErrInvalidPairingPassword, cs.Init(NewSecrets("123456", "123456789012", "pass")))
	assert.Equal(t, 0, len(ch.sent))
}

func TestCommandSetOpenSecureChannel(t *testing.T) {
	cardKey, err := ethcrypto.GenerateKey()
	assert.NoError(t, err)
	cardPubKey := ethcrypto.FromECDSAPub(&cardKey.PublicKey)

	pairingKey := bytes.Repeat([]byte{0x7B}, 32)
	cardData := append(bytes.Repeat([]byte{0x5A}, 32), bytes.Repeat([]byte{0x1F}, 16)...)

	var sim *cardSimulator

	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		switch cmd.Ins {
		case 0xA4:
			return preInitSelectResponse(cardPubKey)
		case InsOpenSecureChannel:
			assert.Equal(t, uint8(2), cmd.P1)

			hostPubKey, err := ethcrypto.UnmarshalPubkey(cmd.Data)
			assert.NoError(t, err)

			secret := crypto.GenerateECDHSharedSecret(cardKey, hostPubKey)
			encKey, macKey, iv := crypto.DeriveSessionKeys(secret, pairingKey, cardData)
			sim = newCardSimulator(encKey, macKey, iv)
			sim.respData = make([]byte, 32)

			return respOK(cardData)
		default:
			// everything after the handshake rides the session
			return sim.Send(cmd)
		}
	}

	cs := NewCommandSet(ch)
	assert.NoError(t, cs.Select())
	cs.SetPairingInfo(pairingKey, 2)

	assert.NoError(t, cs.OpenSecureChannel())
	assert.True(t, cs.sc.IsOpen())

	// MUTUALLY AUTHENTICATE went through the fresh session
	assert.Equal(t, 1, sim.calls)
	assert.Equal(t, 32, len(sim.received[0]))

	// and so does everything that follows
	keyUID := bytes.Repeat([]byte{0x8C}, 32)
	sim.respData = keyUID
	generated, err := cs.GenerateKey()
	assert.NoError(t, err)
	assert.Equal(t, keyUID, generated)
}

func TestCommandSetOpenSecureChannelRollback(t *testing.T) {
	cardKey, err := ethcrypto.GenerateKey()
	assert.NoError(t, err)
	cardPubKey := ethcrypto.FromECDSAPub(&cardKey.PublicKey)

	pairingKey := bytes.Repeat([]byte{0x7B}, 32)
	cardData := append(bytes.Repeat([]byte{0x5A}, 32), bytes.Repeat([]byte{0x1F}, 16)...)

	var sim *cardSimulator

	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		switch cmd.Ins {
		case 0xA4:
			return preInitSelectResponse(cardPubKey)
		case InsOpenSecureChannel:
			hostPubKey, err := ethcrypto.UnmarshalPubkey(cmd.Data)
			assert.NoError(t, err)

			secret := crypto.GenerateECDHSharedSecret(cardKey, hostPubKey)
			encKey, macKey, iv := crypto.DeriveSessionKeys(secret, pairingKey, cardData)
			sim = newCardSimulator(encKey, macKey, iv)
			sim.respSw = 0x6982

			return respOK(cardData)
		default:
			return sim.Send(cmd)
		}
	}

	cs := NewCommandSet(ch)
	assert.NoError(t, cs.Select())
	cs.SetPairingInfo(pairingKey, 0)

	assert.Error(t, cs.OpenSecureChannel())
	assert.False(t, cs.sc.IsOpen())

	// the session keys are gone, nothing else goes out
	sent := len(ch.sent)
	assert.Equal(t, ErrSecureChannelNotOpen, cs.VerifyPIN("123456"))
	assert.Equal(t, sent, len(ch.sent))
}

func TestCommandSetOpenSecureChannelPreconditions(t *testing.T) {
	ch := &fakeChannel{}
	cs := NewCommandSet(ch)

	err := cs.OpenSecureChannel()
	assert.EqualError(t, err, "cannot open secure channel without pairing info")

	cs.SetPairingInfo(bytes.Repeat([]byte{0x7B}, 32), 0)
	assert.Equal(t, ErrNoECDHSecret, cs.OpenSecureChannel())

	assert.Equal(t, 0, len(ch.sent))
}

func TestCommandSetSecureOpsRequireOpenChannel(t *testing.T) {
	ch := &fakeChannel{}
	cs := NewCommandSet(ch)

	ops := []func() error{
		func() error { return cs.VerifyPIN("123456") },
		func() error { return cs.ChangePIN("123456") },
		func() error { return cs.ChangePUK("123456789012") },
		func() error { return cs.ChangePairingSecret("KeycardTest") },
		func() error { return cs.UnblockPIN("123456789012", "123456") },
		func() error { return cs.Unpair(0) },
		func() error { _, err := cs.GenerateKey(); return err },
		func() error { _, err := cs.GenerateMnemonic(4); return err },
		func() error { return cs.RemoveKey() },
		func() error { return cs.DeriveKey("m/44'/60'/0'/0/0") },
		func() error { _, err := cs.LoadSeed(make([]byte, 64)); return err },
		func() error { _, _, err := cs.ExportKey(true, false, true, "m/44'/60'/0'/0/0"); return err },
		func() error { return cs.SetPinlessPath("m/44'/60'/0'/0/0") },
		func() error { _, err := cs.Sign(make([]byte, 32)); return err },
		func() error { _, err := cs.SignPinless(make([]byte, 32)); return err },
		func() error { _, err := cs.GetStatusApplication(); return err },
		func() error { _, err := cs.GetData(P1StoreDataPublic); return err },
		func() error { return cs.StoreData(P1StoreDataPublic, []byte{0x01}) },
	}

	for _, op := range ops {
		assert.Equal(t, ErrSecureChannelNotOpen, op())
	}

	assert.Equal(t, 0, len(ch.sent))
}

func TestCommandSetVerifyPINRetry(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	sim.failNextWith = SwSecureChannelBroken
	assert.NoError(t, cs.VerifyPIN("123456"))
	assert.Equal(t, 2, sim.calls)
	assert.Equal(t, []byte("123456"), sim.received[0])
	assert.Equal(t, []byte("123456"), sim.received[1])
}

func TestCommandSetVerifyPINWrongPIN(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	sim.respSw = 0x63C2
	err := cs.VerifyPIN("111111")

	var wrongPIN *WrongPINError
	assert.True(t, errors.As(err, &wrongPIN))
	assert.Equal(t, 2, wrongPIN.RemainingAttempts)
	assert.Equal(t, 1, sim.calls)
}

func TestCommandSetUnblockPINWrongPUK(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	sim.respSw = 0x63C5
	err := cs.UnblockPIN("999999999999", "123456")

	var wrongPUK *WrongPUKError
	assert.True(t, errors.As(err, &wrongPUK))
	assert.Equal(t, 5, wrongPUK.RemainingAttempts)
	assert.Equal(t, []byte("999999999999123456"), sim.received[0])
}

func TestCommandSetGetStatus(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	tpl := new(bytes.Buffer)
	writeTLV(tpl, 0x02, []byte{0x03})
	writeTLV(tpl, 0x02, []byte{0x05})
	writeTLV(tpl, 0x01, []byte{0xFF})

	status := new(bytes.Buffer)
	writeTLV(status, 0xA3, tpl.Bytes())

	sim.respData = status.Bytes()
	appStatus, err := cs.GetStatusApplication()
	assert.NoError(t, err)
	assert.Equal(t, 3, appStatus.PinRetryCount)
	assert.Equal(t, 5, appStatus.PUKRetryCount)
	assert.True(t, appStatus.KeyInitialized)

	sim.respData = hexutils.HexToBytes("8000002c8000003c800000000000000000000000")
	keyPath, err := cs.GetStatusKeyPath()
	assert.NoError(t, err)
	assert.Equal(t, "m/44'/60'/0'/0/0", keyPath.Path)
}

func TestCommandSetGenerateMnemonic(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	sim.respData = []byte{0x00, 0x01, 0x07, 0xFF, 0x04, 0x00}
	indexes, err := cs.GenerateMnemonic(4)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2047, 1024}, indexes)
}

func TestCommandSetDeriveKey(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	assert.NoError(t, cs.DeriveKey("m/44'/60'/0'/0/0"))
	assert.Equal(t, hexutils.HexToBytes("8000002c8000003c800000000000000000000000"), sim.received[0])
}

func TestCommandSetSign(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	key, err := ethcrypto.GenerateKey()
	assert.NoError(t, err)

	hash := ethcrypto.Keccak256([]byte("hello"))
	sig, err := ethcrypto.Sign(hash, key)
	assert.NoError(t, err)

	tpl := new(bytes.Buffer)
	writeTLV(tpl, 0x80, sig)
	sim.respData = tpl.Bytes()

	signature, err := cs.Sign(hash)
	assert.NoError(t, err)
	assert.Equal(t, hash, sim.received[0])
	assert.Equal(t, sig[:32], signature.R())
	assert.Equal(t, sig[32:64], signature.S())
	assert.Equal(t, sig[64], signature.V())
}

func TestCommandSetExportKey(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	pubKey := append([]byte{0x04}, bytes.Repeat([]byte{0xBB}, 64)...)

	tpl := new(bytes.Buffer)
	writeTLV(tpl, 0x80, pubKey)

	resp := new(bytes.Buffer)
	writeTLV(resp, 0xA1, tpl.Bytes())
	sim.respData = resp.Bytes()

	privKey, exportedPubKey, err := cs.ExportKey(true, false, true, "m/44'/60'/0'/0/0")
	assert.NoError(t, err)
	assert.Nil(t, privKey)
	assert.Equal(t, pubKey, exportedPubKey)
	assert.Equal(t, hexutils.HexToBytes("8000002c8000003c800000000000000000000000"), sim.received[0])
}

func TestCommandSetExportKeyExtended(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	pubKey := append([]byte{0x04}, bytes.Repeat([]byte{0xBB}, 64)...)
	chainCode := bytes.Repeat([]byte{0xCD}, 32)

	tpl := new(bytes.Buffer)
	writeTLV(tpl, 0x80, pubKey)
	writeTLV(tpl, 0x82, chainCode)

	resp := new(bytes.Buffer)
	writeTLV(resp, 0xA1, tpl.Bytes())
	sim.respData = resp.Bytes()

	keyPair, err := cs.ExportKeyExtended(true, false, P2ExportKeyExtendedPublic, "m/44'/60'/0'/0/0")
	assert.NoError(t, err)
	assert.Equal(t, pubKey, keyPair.PubKey())
	assert.Equal(t, chainCode, keyPair.ChainCode())
	assert.Nil(t, keyPair.PrivKey())
}

func TestCommandSetStoreAndGetData(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	assert.NoError(t, cs.StoreData(P1StoreDataPublic, []byte{0xAA, 0xBB}))
	assert.Equal(t, []byte{0xAA, 0xBB}, sim.received[0])

	sim.respData = []byte{0xCC}
	data, err := cs.GetData(P1StoreDataPublic)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xCC}, data)
}

func TestCommandSetMetadata(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	m, err := types.NewMetadata("personal", []uint32{0, 1, 2, 5})
	assert.NoError(t, err)

	assert.NoError(t, cs.StoreMetadata(m))
	assert.Equal(t, m.Serialize(), sim.received[0])

	sim.respData = m.Serialize()
	parsed, err := cs.GetMetadata()
	assert.NoError(t, err)
	assert.Equal(t, "personal", parsed.Name())
	assert.Equal(t, []uint32{0, 1, 2, 5}, parsed.Paths())
}

func TestCommandSetLocalValidation(t *testing.T) {
	cs, sim := newSessionCommandSet(t)

	_, err := cs.GenerateMnemonic(3)
	assert.Equal(t, ErrBadChecksumSize, err)
	_, err = cs.GenerateMnemonic(9)
	assert.Equal(t, ErrBadChecksumSize, err)

	_, err = cs.LoadSeed(make([]byte, 63))
	assert.Equal(t, ErrInvalidSeedLength, err)

	_, err = cs.Sign(make([]byte, 31))
	assert.Error(t, err)

	assert.Error(t, cs.SetPinlessPath("../0/1"))

	assert.Equal(t, 0, sim.calls)
}

func TestCommandSetFactoryReset(t *testing.T) {
	cardKey, err := ethcrypto.GenerateKey()
	assert.NoError(t, err)
	cardPubKey := ethcrypto.FromECDSAPub(&cardKey.PublicKey)

	wiped := false

	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		switch cmd.Ins {
		case 0xA4:
			if wiped {
				return preInitSelectResponse(cardPubKey)
			}
			return initializedSelectResponse(cardPubKey)
		case InsFactoryReset:
			assert.Equal(t, uint8(P1FactoryResetMagic), cmd.P1)
			assert.Equal(t, uint8(P2FactoryResetMagic), cmd.P2)
			wiped = true
			return respOK(nil)
		default:
			return nil, errors.New("unexpected command")
		}
	}

	cs := NewCommandSet(ch)
	cs.SetPairingInfo(bytes.Repeat([]byte{0x7B}, 32), 1)
	oldSC := cs.sc

	assert.NoError(t, cs.FactoryReset())
	assert.Nil(t, cs.PairingInfo)
	assert.False(t, cs.ApplicationInfo.Installed)
	assert.NotSame(t, oldSC, cs.sc)

	// an uninitialized card is left alone
	sent := len(ch.sent)
	assert.NoError(t, cs.FactoryReset())
	assert.Equal(t, sent+1, len(ch.sent))
}

func TestCommandSetIdentify(t *testing.T) {
	sigTemplate := hexutils.HexToBytes("a0028a00")
	var challenge []byte

	ch := &fakeChannel{}
	ch.handler = func(cmd *apdu.Command) (*apdu.Response, error) {
		assert.Equal(t, globalplatform.ClaISO7816, cmd.Cla)
		assert.Equal(t, uint8(InsIdentify), cmd.Ins)
		challenge = cmd.Data
		return respOK(sigTemplate)
	}

	cs := NewCommandSet(ch)
	data, err := cs.Identify(nil)
	assert.NoError(t, err)
	assert.Equal(t, sigTemplate, data)
	assert.Equal(t, 32, len(challenge))

	fixed := bytes.Repeat([]byte{0x11}, 32)
	_, err = cs.Identify(fixed)
	assert.NoError(t, err)
	assert.Equal(t, fixed, challenge)
}
