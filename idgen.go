package docengine

import (
	"strings"

	"github.com/google/uuid"
)

// newID generates a 16-character opaque document identifier. It follows the
// platform service's own pattern of stripping the hyphens out of a uuid.New()
// string and truncating, rather than hand-rolling a random alphabet.
func newID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return raw[:16]
}
