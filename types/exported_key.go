package types

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ParseExportKeyResponse parses an EXPORT KEY response and returns the private
// and public key. Cards can omit the public key when exporting a private key,
// in which case it is recomputed here.
func ParseExportKeyResponse(data []byte) ([]byte, []byte, error) {
	keyPair, err := ParseKeyPair(data)
	if err != nil {
		return nil, nil, err
	}

	privKey := keyPair.PrivKey()
	pubKey := keyPair.PubKey()

	if len(pubKey) == 0 && len(privKey) > 0 {
		ecdsaKey, err := ethcrypto.HexToECDSA(fmt.Sprintf("%x", privKey))
		if err != nil {
			return nil, nil, err
		}

		pubKey = ethcrypto.FromECDSAPub(&ecdsaKey.PublicKey)
	}

	return privKey, pubKey, nil
}
