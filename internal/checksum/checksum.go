// Package checksum computes content digests for documents and document sets.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/starford/souschef/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint digests a document listing independent of its order.
// Two listings with the same paths and contents share a fingerprint.
func Fingerprint(metas []models.DocumentMetadata) string {
	keys := make([]string, 0, len(metas))
	for _, m := range metas {
		keys = append(keys, m.Path+"\x00"+m.Checksum)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
