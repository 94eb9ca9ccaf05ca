// Package sessionid derives chat session identifiers from the caller, the
// chatflow and the wall clock.
package sessionid

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Namespace is the fixed name-based UUID namespace every session id is hashed against.
var Namespace = uuid.NameSpaceURL

// Generate returns a version 5 UUID seeded with the user id, the chatflow id and
// the current epoch milliseconds. Two calls for the same pair only collide when
// they land in the same millisecond.
func Generate(userID, chatflowID string) uuid.UUID {
	return GenerateAt(userID, chatflowID, time.Now())
}

// GenerateAt is Generate with an explicit timestamp.
func GenerateAt(userID, chatflowID string, at time.Time) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(Seed(userID, chatflowID, at)))
}

// Seed builds the hashed seed string.
func Seed(userID, chatflowID string, at time.Time) string {
	var b strings.Builder
	b.WriteString(userID)
	b.WriteByte('_')
	b.WriteString(chatflowID)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(at.UnixMilli(), 10))
	return b.String()
}
