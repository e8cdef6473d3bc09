package filesystem

import "strings"

// LocalPath converts a file:// URI to a local path. Bare paths pass through
// unchanged.
func LocalPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
