package derivationpath

import (
	"fmt"
	"strings"
)

// Encode returns the string representation of an absolute derivation path,
// marking hardened indexes with '.
func Encode(rawPath []uint32) string {
	segments := []string{"m"}

	for _, i := range rawPath {
		suffix := ""

		if i >= hardenedStart {
			i -= hardenedStart
			suffix = "'"
		}

		segments = append(segments, fmt.Sprintf("%d%s", i, suffix))
	}

	return strings.Join(segments, "/")
}
