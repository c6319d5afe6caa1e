package dedup

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/markbank/md2db/pkg/types"
)

// ContentKey computes the canonical dedup digest for a sub-entity. The
// digest input depends on the kind:
//   - options: label and content, so "A. 4" and "B. 4" stay distinct
//   - images: the URL alone
//   - formulas: the formula text alone
//
// The same (kind, label, content) always yields the same digest, which the
// store's unique hash indexes rely on.
func ContentKey(kind types.EntityKind, label, content string) string {
	var payload string
	switch kind {
	case types.KindOption:
		payload = label + ":" + content
	default:
		payload = content
	}
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// QuestionHash computes the content digest stored alongside a question
// record. It is informational; question identity is the source key.
func QuestionHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
