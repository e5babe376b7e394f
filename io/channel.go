package io

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/alexjba/keycard-go/apdu"
	"github.com/alexjba/keycard-go/globalplatform"
	"github.com/alexjba/keycard-go/hexutils"
)

var logger = log.New("package", "keycard-go.io")

// Transmitter sends a raw command to the card and returns its raw response.
type Transmitter interface {
	Transmit([]byte) ([]byte, error)
}

// NormalChannel sends commands to a Transmitter as they are, without any
// secure channel wrapping.
type NormalChannel struct {
	t Transmitter
}

func NewNormalChannel(t Transmitter) *NormalChannel {
	return &NormalChannel{t}
}

// Send transmits cmd and parses the card response. While the card answers
// 0x61XX, Send issues GET RESPONSE commands and concatenates the partial
// response data.
func (c *NormalChannel) Send(cmd *apdu.Command) (*apdu.Response, error) {
	resp, err := c.transmit(cmd)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(resp.Data))
	data = append(data, resp.Data...)

	for resp.Sw1 == globalplatform.Sw1ResponseDataIncomplete {
		resp, err = c.transmit(globalplatform.NewCommandGetResponse(resp.Sw2))
		if err != nil {
			return nil, err
		}

		data = append(data, resp.Data...)
	}

	resp.Data = data

	return resp, nil
}

func (c *NormalChannel) transmit(cmd *apdu.Command) (*apdu.Response, error) {
	rawCmd, err := cmd.Serialize()
	if err != nil {
		return nil, err
	}

	logger.Debug("apdu command", "hex", hexutils.BytesToHexWithSpaces(rawCmd))
	rawResp, err := c.t.Transmit(rawCmd)
	if err != nil {
		return nil, err
	}
	logger.Debug("apdu response", "hex", hexutils.BytesToHexWithSpaces(rawResp))

	return apdu.ParseResponse(rawResp)
}
