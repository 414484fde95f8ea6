package parse

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
)

// Key derives the deduplication fingerprint of an issue. It hashes only
// the semantic identity fields (employee, robot, start time, primary
// category), never the free-text description or recovery notes, so two
// differently typed duplicates of the same real-world event collapse to
// one key. Fields are lowercased, trimmed, and length-prefixed before
// hashing so no concatenation of values is ambiguous.
func Key(is Issue) string {
	h := sha256.New()

	writeField := func(s string) {
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}

	writeField(strings.ToLower(strings.TrimSpace(is.Employee)))
	writeField(strings.ToLower(strings.TrimSpace(is.Robot)))
	writeField(strconv.FormatInt(is.StartTime.Unix(), 10))
	writeField(strings.ToLower(strings.TrimSpace(is.CategoryPrimary)))

	return hex.EncodeToString(h.Sum(nil))
}
