package execution

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var errHandlerPanic = errors.New("execution: handler panicked")

// hashUser one-way hashes a user id for audit events; the raw id never
// appears in an emitted event (spec.md §4.13).
func hashUser(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:16]
}

// stableParamsKey renders params deterministically regardless of Go's
// randomized map iteration order, for use as a dedupe cache key.
func stableParamsKey(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		fmt.Fprintf(&b, "%s=%v", k, params[k])
	}
	return b.String()
}
