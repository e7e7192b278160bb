package scene

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a short random id such as "screen-3f9a1c0e".
// Collisions are not checked.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + raw[:8]
}
