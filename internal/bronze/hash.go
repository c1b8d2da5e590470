// Package bronze implements the content-addressing scheme of the raw
// capture tier. The same logical payload must always hash to the same value
// regardless of JSON key order or number formatting, so the bronze
// uniqueness constraint can absorb refetches of unchanged data.
package bronze

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ContentHash returns the sha256 hex digest of the canonical form of body.
// A body that is not valid JSON is hashed as-is; bronze still stores it so
// the capture is lossless, and the hash is still deterministic.
func ContentHash(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		sum := sha256.Sum256(body)
		return hex.EncodeToString(sum[:])
	}

	var b strings.Builder
	writeCanonical(&b, v)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// writeCanonical renders a decoded JSON value with object keys sorted and
// scalars stringified deterministically: this makes {"a":1,"b":2} and
// {"b":2,"a":1} identical, and 1 vs 1.0 identical.
func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case string:
		b.WriteString(strconv.Quote(t))
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, t[k])
		}
		b.WriteByte('}')
	default:
		// json.Unmarshal into any never produces other types, but keep the
		// hash total rather than panicking on future decoder changes.
		fmt.Fprintf(b, "%v", t)
	}
}
