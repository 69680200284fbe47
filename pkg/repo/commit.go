package repo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/vcs/pkg/object"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

var timeNow = time.Now

// Commit creates a new commit from the current index. An empty author is
// resolved from configuration.
//
//  1. Read the index; nothing staged is an error
//  2. Resolve HEAD to get the parent commit hash (if any)
//  3. BuildTree from the parent's files overlaid with the index
//  4. Create and write the CommitObj
//  5. Advance HEAD, compare-and-swap against the parent
//  6. Clear the index
//
// Each step runs only if the previous one succeeded, so a failed commit
// leaves HEAD and the index untouched.
func (r *Repo) Commit(message, author string) (object.Hash, error) {
	return r.CommitWithSigner(message, author, nil)
}

// CommitWithSigner creates a new commit and signs it when signer is provided.
func (r *Repo) CommitWithSigner(message, author string, signer CommitSigner) (object.Hash, error) {
	var commitHash object.Hash
	err := r.withLock("commit", func() error {
		ix, err := r.ReadIndex()
		if err != nil {
			return err
		}
		if len(ix.Entries) == 0 {
			return vcserr.Errorf(vcserr.ErrInvalidInput, "nothing to commit (use 'vcs add' to stage files)")
		}

		parent, hasParent, err := r.ResolveHead()
		if err != nil {
			return err
		}
		snapshot, err := r.commitSnapshot(ix, parent, hasParent)
		if err != nil {
			return err
		}
		treeHash, err := r.BuildTree(snapshot)
		if err != nil {
			return err
		}

		if strings.TrimSpace(author) == "" {
			author, err = NewConfigStore(r).Author()
			if err != nil {
				return err
			}
		}

		commitObj := &object.CommitObj{
			TreeHash:  treeHash,
			Parent:    parent,
			Author:    author,
			Timestamp: timeNow().Unix(),
			Message:   message,
		}
		if err := object.ValidateCommit(commitObj); err != nil {
			return err
		}
		if signer != nil {
			signature, err := signer(object.CommitSigningPayload(commitObj))
			if err != nil {
				return fmt.Errorf("sign commit: %w", err)
			}
			commitObj.Signature = signature
		}

		commitHash, err = r.Store.WriteCommit(commitObj)
		if err != nil {
			return fmt.Errorf("write commit: %w", err)
		}

		ref, err := r.headRefName()
		if err != nil {
			return err
		}
		reason := "commit: " + firstLine(message)
		if !hasParent {
			reason = "commit (initial): " + firstLine(message)
		}
		if err := r.UpdateRefCAS(ref, commitHash, reason, parent); err != nil {
			if !errors.Is(err, ErrRefUpdatedButReflogAppendFailed) {
				return err
			}
			// The ref already points at the new commit.
			r.Logger.WithError(err).WithField("ref", ref).Warn("commit recorded without reflog entry")
		}

		if err := r.WriteIndex(&Index{}); err != nil {
			return err
		}

		r.Logger.WithFields(logrus.Fields{
			"commit": commitHash,
			"tree":   treeHash,
			"parent": displayHash(parent),
			"ref":    ref,
		}).Debug("created commit")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return commitHash, nil
}

// commitSnapshot is the full file list of the next commit: the parent
// commit's files with every index entry laid over them, sorted by path.
// Deletion entries drop the path.
func (r *Repo) commitSnapshot(ix *Index, parent object.Hash, hasParent bool) ([]IndexEntry, error) {
	byPath := make(map[string]IndexEntry)
	if hasParent {
		c, err := r.Store.ReadCommit(parent)
		if err != nil {
			return nil, fmt.Errorf("read parent commit: %w", err)
		}
		files, err := r.FlattenTree(c.TreeHash)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			byPath[f.Path] = IndexEntry{Path: f.Path, Hash: f.Hash, Mode: f.Mode}
		}
	}
	for _, e := range ix.Entries {
		if e.Deleted {
			delete(byPath, e.Path)
			continue
		}
		byPath[e.Path] = e
	}

	out := make([]IndexEntry, 0, len(byPath))
	for _, e := range byPath {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// LogEntry is a commit together with its hash.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks the commit history starting from the given hash, following
// parent links, returning up to limit commits newest first. A limit <= 0
// means no limit.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	current := start

	for current != "" && (limit <= 0 || len(entries) < limit) {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		entries = append(entries, LogEntry{Hash: current, Commit: c})
		current = c.Parent
	}
	return entries, nil
}

// History returns up to limit commits reachable from HEAD, newest first.
// It returns nil when there are no commits yet.
func (r *Repo) History(limit int) ([]LogEntry, error) {
	head, ok, err := r.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return r.Log(head, limit)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimLeft(s, "\n"), "\n")
	return strings.TrimSpace(line)
}
