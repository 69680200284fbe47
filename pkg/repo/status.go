package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/vcs/pkg/object"
)

// Status is the classification of every path in the union of the working
// tree, the index and the HEAD tree. Each list is sorted. A path appears in
// at most one staged list and at most one unstaged list; paths that are
// clean appear nowhere.
type Status struct {
	Branch     string // "" when HEAD is detached
	HasCommits bool

	StagedNew      []string // in index, not in HEAD
	StagedModified []string // in index and HEAD with different content
	StagedDeleted  []string // in HEAD, staged for removal
	Modified       []string // working content differs from what would be committed
	Deleted        []string // tracked, gone from the working tree and not staged
	Untracked      []string // on disk only
}

// IsClean reports whether nothing is staged, changed or untracked.
func (s *Status) IsClean() bool {
	return !s.HasStaged() && len(s.Modified) == 0 && len(s.Deleted) == 0 && len(s.Untracked) == 0
}

// HasStaged reports whether any staged category is non-empty.
func (s *Status) HasStaged() bool {
	return len(s.StagedNew) > 0 || len(s.StagedModified) > 0 || len(s.StagedDeleted) > 0
}

// Status compares the working tree, the index and the HEAD tree. It reads
// only; nothing is written to the store or the index.
//
// Algorithm:
//  1. Read the index and flatten the HEAD tree.
//  2. Walk the working directory (skipping .vcs/ and ignored paths) and
//     hash each file as a blob after line-ending normalization.
//  3. Classify every working file against index and HEAD.
//  4. Classify index and HEAD paths missing from the working tree.
//  5. Sort every list.
func (r *Repo) Status() (*Status, error) {
	ix, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	head, err := r.headTreeFiles()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	branch, err := r.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	_, hasCommits, err := r.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	workFiles, err := r.walkWorktree(r.RootDir, NewIgnoreChecker(r.RootDir))
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	index := make(map[string]IndexEntry, len(ix.Entries))
	for _, e := range ix.Entries {
		index[e.Path] = e
	}

	st := &Status{Branch: branch, HasCommits: hasCommits}
	onDisk := make(map[string]struct{}, len(workFiles))

	for _, p := range workFiles {
		onDisk[p] = struct{}{}
		workHash, err := r.hashWorkingFile(p)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		idx, inIndex := index[p]
		idxHash := idx.Hash
		headEntry, inHead := head[p]

		switch {
		case inIndex && idx.Deleted:
			// The removal is reported from the index pass below.
			st.Untracked = append(st.Untracked, p)
		case inIndex && inHead:
			if idxHash != headEntry.Hash {
				st.StagedModified = append(st.StagedModified, p)
			}
			if workHash != idxHash {
				st.Modified = append(st.Modified, p)
			}
		case inIndex:
			st.StagedNew = append(st.StagedNew, p)
			if workHash != idxHash {
				st.Modified = append(st.Modified, p)
			}
		case inHead:
			if workHash != headEntry.Hash {
				st.Modified = append(st.Modified, p)
			}
		default:
			st.Untracked = append(st.Untracked, p)
		}
	}

	for _, e := range ix.Entries {
		headEntry, inHead := head[e.Path]
		if e.Deleted {
			// A marker for a path HEAD no longer has is a no-op.
			if inHead {
				st.StagedDeleted = append(st.StagedDeleted, e.Path)
			}
			continue
		}
		if _, ok := onDisk[e.Path]; ok {
			continue
		}
		// Staged, then removed from disk: the staged content is still what
		// a commit would record.
		switch {
		case !inHead:
			st.StagedNew = append(st.StagedNew, e.Path)
		case e.Hash != headEntry.Hash:
			st.StagedModified = append(st.StagedModified, e.Path)
		}
		st.Deleted = append(st.Deleted, e.Path)
	}

	for p := range head {
		if _, ok := onDisk[p]; ok {
			continue
		}
		if _, ok := index[p]; ok {
			continue
		}
		st.Deleted = append(st.Deleted, p)
	}

	for _, list := range [][]string{st.StagedNew, st.StagedModified, st.StagedDeleted, st.Modified, st.Deleted, st.Untracked} {
		sort.Strings(list)
	}

	r.Logger.WithFields(logrus.Fields{
		"staged":    len(st.StagedNew) + len(st.StagedModified) + len(st.StagedDeleted),
		"modified":  len(st.Modified),
		"deleted":   len(st.Deleted),
		"untracked": len(st.Untracked),
	}).Debug("status computed")
	return st, nil
}

// hashWorkingFile hashes a working-tree file the way Add would store it.
func (r *Repo) hashWorkingFile(rel string) (object.Hash, error) {
	content, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(rel)))
	if err != nil {
		return "", fmt.Errorf("read %q: %w", rel, err)
	}
	return object.HashObject(object.TypeBlob, normalizeLineEndings(content)), nil
}

// walkWorktree returns the sorted repo-relative paths of the regular files
// under start, skipping ignored files and directories.
func (r *Repo) walkWorktree(start string, ic *IgnoreChecker) ([]string, error) {
	var files []string
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if ic.IsIgnoredDir(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ic.IsIgnored(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
