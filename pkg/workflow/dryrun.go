package workflow

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Validate Dry runs the workflow against the directory it will watch.
//
// It looks for actions which write back into the watched directory, which
// would feed their own output into the next event. This is not definitive: it
// cannot see what a RunCmd does, nor recursion across several handlers, but it
// catches the majority of cases.
//
// Arguments:
//
// - watched string The absolute directory the workflow is bound to
//
// Return:
//
// - []string one warning per suspicious action
func (c *Config) Validate(watched string) (warnings []string) {
	watched = filepath.Clean(watched)
	for i, action := range c.pipeline {
		var dest string
		switch a := action.(type) {
		case *MoveToDir:
			dest = a.DirectoryPath
		case *ExtractArchive:
			dest = a.DirectoryPath
		default:
			continue
		}
		if !filepath.IsAbs(dest) {
			warnings = append(warnings, fmt.Sprintf(
				"actions[%d] %s: directory_path %q is relative to the daemon working directory", i, action.Name(), dest))
			continue
		}
		if writesInto(watched, filepath.Clean(dest), c.WatchRecursive) {
			warnings = append(warnings, fmt.Sprintf(
				"actions[%d] %s: recursive configuration detected, %s is inside watched directory %s", i, action.Name(), dest, watched))
		}
	}
	return
}

func writesInto(watched, dest string, recursive bool) bool {
	if dest == watched {
		return true
	}
	if !recursive {
		return false
	}
	return strings.HasPrefix(dest, watched+string(filepath.Separator))
}
