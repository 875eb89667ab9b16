package deduplication

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"leadflow/pkg/models"
)

// ClaimKey identifies an envelope for idempotency purposes. Producers that
// retry a publish reuse the envelope ID, so ID and source are enough.
func ClaimKey(msg models.MessageEnvelope) string {
	var b strings.Builder
	b.WriteString(msg.Source)
	b.WriteByte('|')
	b.WriteString(msg.ID)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
