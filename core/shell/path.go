package shell

import (
	"path"
	"strings"
)

const (
	// Separator divides path segments.
	Separator = "/"
	// HomeMarker at the start of a path stands for the home directory.
	HomeMarker = "~"
)

// ResolvePath turns a user supplied path into a clean absolute one. Paths
// starting with HomeMarker are relative to home, other relative paths to
// workingDirectory. No filesystem access happens.
func ResolvePath(raw, workingDirectory, home string) string {
	switch {
	case strings.HasPrefix(raw, HomeMarker):
		raw = path.Join(home, strings.TrimPrefix(raw, HomeMarker))
	case !strings.HasPrefix(raw, Separator):
		raw = path.Join(workingDirectory, raw)
	}

	// Join drops the leading separator if the base wasn't absolute.
	return path.Clean(Separator + raw)
}
