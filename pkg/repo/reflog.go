package repo

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/odvcencio/vcs/pkg/object"
)

// Each ref has an append-only log at .vcs/logs/<ref> with one line per move:
//
//	<old-hash> <new-hash> <unix-seconds> <reason>
//
// A ref's first value is logged with an all-zero old hash.

const zeroHash = "0000000000000000000000000000000000000000"

// ReflogEntry is one recorded movement of a ref.
type ReflogEntry struct {
	Ref       string
	OldHash   object.Hash
	NewHash   object.Hash
	Timestamp int64
	Reason    string
}

// IsCreation reports whether the entry recorded the ref's first value.
func (e ReflogEntry) IsCreation() bool { return e.OldHash == zeroHash }

func (e ReflogEntry) String() string {
	return fmt.Sprintf("%s %s %d %s", e.OldHash, e.NewHash, e.Timestamp, e.Reason)
}

// parseReflogLine decodes one log line for ref. ok is false for lines that
// do not have all four fields or carry a non-numeric timestamp.
func parseReflogLine(ref, line string) (e ReflogEntry, ok bool) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 4)
	if len(fields) != 4 {
		return e, false
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return e, false
	}
	return ReflogEntry{
		Ref:       ref,
		OldHash:   object.Hash(fields[0]),
		NewHash:   object.Hash(fields[1]),
		Timestamp: ts,
		Reason:    fields[3],
	}, true
}

func (r *Repo) reflogPath(ref string) string {
	return filepath.Join(r.VcsDir, "logs", filepath.FromSlash(ref))
}

// appendReflog records that ref moved from oldHash to newHash. Whitespace in
// reason collapses to single spaces so the entry stays on one line.
func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	if ref = strings.TrimSpace(ref); ref == "" {
		return nil
	}
	e := ReflogEntry{
		Ref:       ref,
		OldHash:   oldHash,
		NewHash:   newHash,
		Timestamp: timeNow().Unix(),
		Reason:    strings.Join(strings.Fields(reason), " "),
	}
	if e.OldHash == "" {
		e.OldHash = zeroHash
	}
	if e.Reason == "" {
		e.Reason = "update"
	}

	p := r.reflogPath(ref)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("append reflog %s: %w", ref, err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("append reflog %s: %w", ref, err)
	}
	_, werr := f.WriteString(e.String() + "\n")
	if err := errors.Join(werr, f.Close()); err != nil {
		return fmt.Errorf("append reflog %s: %w", ref, err)
	}
	return nil
}

// ReadReflog returns the reflog of ref, newest first. An empty ref or
// "HEAD" reads the log of the ref HEAD points at, and a bare name means a
// branch. A limit <= 0 returns all entries. Malformed lines are skipped.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	name, err := r.resolveReflogRefName(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(r.reflogPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reflog %s: %w", name, err)
	}
	defer f.Close()

	var entries []ReflogEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if e, ok := parseReflogLine(name, sc.Text()); ok {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read reflog %s: %w", name, err)
	}

	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *Repo) resolveReflogRefName(ref string) (string, error) {
	switch ref = strings.TrimSpace(ref); {
	case ref == "" || ref == "HEAD":
		return r.headRefName()
	case strings.HasPrefix(ref, "refs/"):
		return ref, nil
	default:
		return "refs/heads/" + ref, nil
	}
}
