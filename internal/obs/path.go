package obs

import "strings"

// CanonicalPath collapses resource identifiers out of request paths so that
// metric label cardinality stays bounded.
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	prefixes := []string{
		"/api/qr/generate/",
		"/api/qr/image/",
		"/api/supplies/",
		"/api/equipment/",
		"/api/accounts/",
		"/scan/supply/",
		"/scan/equipment/",
		"/listen/equipment/",
		"/stock-card/",
		"/track/",
		"/lcc/",
	}
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(path, p); ok && rest != "" {
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				return p + ":id" + rest[i:]
			}
			return p + ":id"
		}
	}
	return path
}
