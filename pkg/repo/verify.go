package repo

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/odvcencio/vcs/pkg/object"
)

// VerifyReport summarizes a repository integrity check.
type VerifyReport struct {
	Store     *object.VerifyReport
	Refs      int // refs (plus a detached HEAD) used as reachability roots
	Reachable int // objects reachable from those roots
	Signed    []SignedCommit
}

// SignedCommit is a commit on the HEAD chain whose signature verified.
type SignedCommit struct {
	Hash        object.Hash
	Fingerprint string
}

// Verify checks every stored object, that everything reachable from the
// refs is present, and the signature of every signed commit on the HEAD
// chain. The first problem found is returned as an error.
func (r *Repo) Verify() (*VerifyReport, error) {
	storeReport, err := r.Store.Verify()
	if err != nil {
		return nil, err
	}

	refs, err := r.ListRefs()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	rootSet := make(map[object.Hash]struct{}, len(refs)+1)
	for _, h := range refs {
		rootSet[h] = struct{}{}
	}
	head, hasHead, err := r.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if hasHead {
		rootSet[head] = struct{}{}
	}
	roots := make([]object.Hash, 0, len(rootSet))
	for h := range rootSet {
		roots = append(roots, h)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	reachable, err := r.Store.ReachableSet(roots)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	report := &VerifyReport{Store: storeReport, Refs: len(roots), Reachable: len(reachable)}

	history, err := r.History(0)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	for _, e := range history {
		if e.Commit.Signature == "" {
			continue
		}
		fp, err := VerifyCommitSignature(e.Commit)
		if err != nil {
			return nil, fmt.Errorf("verify: commit %s: %w", e.Hash.Short(), err)
		}
		report.Signed = append(report.Signed, SignedCommit{Hash: e.Hash, Fingerprint: fp})
	}

	r.Logger.WithFields(logrus.Fields{
		"objects":   storeReport.Objects,
		"reachable": report.Reachable,
		"signed":    len(report.Signed),
	}).Debug("verify complete")
	return report, nil
}
