package cache

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint keys a query by keywords, location and the remote flag.
// The source list is not part of the key: two requests that differ only
// in sources share an entry.
func Fingerprint(keywords, location string, remoteOnly bool) string {
	h := xxhash.New()
	_, _ = h.WriteString(normalize(keywords))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(normalize(location))
	if remoteOnly {
		_, _ = h.WriteString("\x00remote")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func normalize(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}
