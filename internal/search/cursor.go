package search

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const cursorVersion = 1

// cursor is the decoded form of a nextToken
type cursor struct {
	Version     int    `json:"v"`
	StoreToken  string `json:"s,omitempty"`
	Offset      int    `json:"o,omitempty"`
	Fingerprint string `json:"f"`
}

func encodeCursor(c cursor) string {
	c.Version = cursorVersion
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeCursor returns the cursor in token when it is well formed and was
// issued for a request with the same fingerprint. Anything else means the
// caller starts from the first page.
func decodeCursor(token, fingerprint string) (cursor, bool) {
	if token == "" {
		return cursor{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return cursor{}, false
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return cursor{}, false
	}
	if c.Version != cursorVersion || c.Fingerprint != fingerprint || c.Offset < 0 {
		return cursor{}, false
	}
	return c, true
}

// requestFingerprint hashes everything that shapes the ranked sequence, so a
// token cannot be replayed against a different query, filter or caller.
func requestFingerprint(terms []string, spec FilterSpec, o Ordering, limit int) string {
	var b strings.Builder
	b.WriteString(strings.Join(terms, "\x1f"))
	b.WriteByte(0)
	b.WriteString(strings.ToLower(spec.Tag))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(int(spec.Scope)))
	b.WriteByte(0)
	b.WriteString(spec.UserID)
	b.WriteByte(0)
	b.WriteString(strconv.FormatBool(o.ByScore))
	b.WriteString(strconv.FormatBool(o.ByPopularity))
	b.WriteString(string(o.Field))
	b.WriteString(string(o.Order))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(limit))
	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}
