package hexutils

import (
	"encoding/hex"
	"fmt"
	"regexp"
)

var separators = regexp.MustCompile(`[\s]+`)

// BytesToHexWithSpaces turns a byte sequence into its hexadecimal representation with one space between bytes.
func BytesToHexWithSpaces(data []byte) string {
	return fmt.Sprintf("% X", data)
}

// BytesToHex turns a byte sequence into its hexadecimal representation.
func BytesToHex(data []byte) string {
	return fmt.Sprintf("%X", data)
}

// HexToBytes decodes str, ignoring any whitespace.
// It panics on malformed input and is meant for hardcoded values and fixtures.
func HexToBytes(str string) []byte {
	data, err := hex.DecodeString(separators.ReplaceAllString(str, ""))
	if err != nil {
		panic(err)
	}

	return data
}
