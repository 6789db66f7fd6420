package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// CorpusHash fingerprints a document set by identity and update time.
// Cached answers keyed by this hash are implicitly invalidated whenever
// any document is added, removed, or re-ingested.
//
// The hash is order-independent: documents are sorted by ID before hashing.
func CorpusHash(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}

	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("%s:%d", doc.ID, doc.UpdatedAt.UnixNano())
	}
	sort.Strings(parts)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
