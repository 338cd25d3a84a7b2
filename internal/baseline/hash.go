package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashMatch returns the SHA-256 hex digest of the matched text with runs of
// white space collapsed, so re-indented code keeps its fingerprint.
// It returns "" for blank text.
func HashMatch(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
