package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// HashContent returns a stable hex digest of arbitrary text, used to fingerprint
// protocol step descriptions for cache validity checks. Leading and trailing
// whitespace is ignored so that editor-introduced padding does not invalidate
// cached analyses.
func HashContent(input string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(input)))
	return fmt.Sprintf("%x", sum)
}
