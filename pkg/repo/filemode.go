package repo

import (
	"os"

	"github.com/odvcencio/vcs/pkg/object"
)

// modeFromFileInfo maps a file's permission bits to a tree mode string. Any
// execute bit makes the file executable.
func modeFromFileInfo(info os.FileInfo) string {
	if info.Mode()&0o111 != 0 {
		return object.TreeModeExecutable
	}
	return object.TreeModeFile
}

func normalizeFileMode(mode string) string {
	if mode == object.TreeModeExecutable {
		return object.TreeModeExecutable
	}
	return object.TreeModeFile
}

// filePermFromMode is the permission a file with the given tree mode is
// materialized with.
func filePermFromMode(mode string) os.FileMode {
	if normalizeFileMode(mode) == object.TreeModeExecutable {
		return 0o755
	}
	return 0o644
}
