package repo

import (
	"fmt"
	"sort"
	"strings"
)

// Unstage removes index entries. With no paths the whole index is cleared.
// A path names a staged file or a directory whose staged files are all
// removed. It returns the paths actually unstaged, sorted.
func (r *Repo) Unstage(paths []string) ([]string, error) {
	var removed []string
	err := r.withLock("reset", func() error {
		ix, err := r.ReadIndex()
		if err != nil {
			return err
		}

		if len(paths) == 0 {
			for _, e := range ix.Entries {
				removed = append(removed, e.Path)
			}
			ix.Entries = nil
		} else {
			for _, p := range paths {
				rel, err := r.repoRelPath(p)
				if err != nil {
					return err
				}
				for _, e := range ix.Sorted() {
					if rel == "." || e.Path == rel || strings.HasPrefix(e.Path, rel+"/") {
						if ix.Remove(e.Path) {
							removed = append(removed, e.Path)
						}
					}
				}
			}
		}

		return r.WriteIndex(ix)
	})
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	sort.Strings(removed)
	return removed, nil
}
