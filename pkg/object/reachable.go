package object

import (
	"fmt"
	"sort"
	"strings"

	"github.com/odvcencio/vcs/pkg/vcserr"
)

// ReachableSet returns all object hashes reachable from roots by following
// commit parents, commit trees and tree entries. A referenced object that
// is absent from the store is reported as ErrCorrupt, since history must be
// closed under references. Missing roots are ignored.
func (s *Store) ReachableSet(roots []Hash) (map[Hash]struct{}, error) {
	roots = uniqueNormalizedHashes(roots)
	out := make(map[Hash]struct{}, len(roots))
	if len(roots) == 0 {
		return out, nil
	}

	isRoot := make(map[Hash]bool, len(roots))
	for _, r := range roots {
		isRoot[r] = true
	}

	stack := make([]Hash, 0, len(roots))
	stack = append(stack, roots...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := out[h]; ok {
			continue
		}
		if !s.Has(h) {
			if isRoot[h] {
				continue
			}
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "reachable set: missing object %s", h)
		}
		out[h] = struct{}{}

		obj, err := s.Read(h)
		if err != nil {
			return nil, fmt.Errorf("reachable set read %s: %w", h, err)
		}
		stack = append(stack, referencedHashes(obj)...)
	}

	return out, nil
}

func referencedHashes(obj Object) []Hash {
	switch o := obj.(type) {
	case *CommitObj:
		refs := []Hash{o.TreeHash}
		if o.Parent != "" {
			refs = append(refs, o.Parent)
		}
		return refs
	case *TreeObj:
		refs := make([]Hash, 0, len(o.Entries))
		for _, e := range o.Entries {
			refs = append(refs, e.Hash)
		}
		return refs
	default:
		return nil
	}
}

func uniqueNormalizedHashes(in []Hash) []Hash {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		h = Hash(strings.TrimSpace(string(h)))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
