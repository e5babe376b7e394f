package globalplatform

// Class bytes.
const (
	ClaISO7816 = uint8(0x00)
	ClaGp      = uint8(0x80)
)

// Instructions used on the plain channel.
const (
	InsSelect      = uint8(0xA4)
	InsGetResponse = uint8(0xC0)
)

// Sw1ResponseDataIncomplete signals that more response data is available
// through GET RESPONSE.
const Sw1ResponseDataIncomplete = uint8(0x61)

// Status words.
const (
	SwOK                            = uint16(0x9000)
	SwFileNotFound                  = uint16(0x6A82)
	SwReferencedDataNotFound        = uint16(0x6A88)
	SwConditionsOfUseNotSatisfied   = uint16(0x6985)
	SwSecurityConditionNotSatisfied = uint16(0x6982)
	SwAuthenticationMethodBlocked   = uint16(0x6983)
)
