package llm

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// batchIDLen is the hex length tellm accepts for a batch id.
const batchIDLen = 24

// newBatchID keeps the leading 12 bytes of a UUIDv7, so ids from later runs sort after
// earlier ones.
func newBatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return hex.EncodeToString(id[:batchIDLen/2])
}

// EnsureBatchID returns the configured batch id in lower case, or a fresh one when it is
// not 24 hex characters.
func EnsureBatchID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == batchIDLen {
		if _, err := hex.DecodeString(s); err == nil {
			return s
		}
	}
	return newBatchID()
}
