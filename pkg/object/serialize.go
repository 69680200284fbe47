package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/odvcencio/vcs/pkg/vcserr"
)

// Every stored object is an envelope "type len\0content". Serialize and
// Deserialize convert between an Object and its envelope; the Marshal* and
// Unmarshal* helpers below deal with the content part only.

func envelopeHeader(objType ObjectType, n int) []byte {
	return []byte(fmt.Sprintf("%s %d\x00", objType, n))
}

// Serialize encodes obj into its canonical envelope bytes. The digest of an
// object is the SHA-1 of exactly these bytes.
func Serialize(obj Object) ([]byte, error) {
	var content []byte
	switch o := obj.(type) {
	case *Blob:
		content = MarshalBlob(o)
	case *TreeObj:
		var err error
		content, err = MarshalTree(o)
		if err != nil {
			return nil, err
		}
	case *CommitObj:
		if err := ValidateCommit(o); err != nil {
			return nil, err
		}
		content = MarshalCommit(o)
	default:
		return nil, vcserr.Errorf(vcserr.ErrInvalidInput, "serialize: unsupported object %T", obj)
	}

	header := envelopeHeader(obj.Type(), len(content))
	out := make([]byte, 0, len(header)+len(content))
	out = append(out, header...)
	out = append(out, content...)
	return out, nil
}

// Deserialize decodes envelope bytes produced by Serialize.
func Deserialize(data []byte) (Object, error) {
	objType, content, err := splitEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch objType {
	case TypeBlob:
		return UnmarshalBlob(content)
	case TypeTree:
		return UnmarshalTree(content)
	case TypeCommit:
		return UnmarshalCommit(content)
	default:
		return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unknown object type %q", objType)
	}
}

// splitEnvelope parses "type len\0" and returns the type and content. The
// declared length must match the content that follows.
func splitEnvelope(data []byte) (ObjectType, []byte, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return "", nil, vcserr.Errorf(vcserr.ErrCorrupt, "invalid object format: missing header terminator")
	}
	header := data[:nul]
	if !utf8.Valid(header) {
		return "", nil, vcserr.Errorf(vcserr.ErrCorrupt, "invalid object header: not UTF-8")
	}
	content := data[nul+1:]

	parts := strings.Split(string(header), " ")
	if len(parts) != 2 {
		return "", nil, vcserr.Errorf(vcserr.ErrCorrupt, "invalid object header %q", header)
	}
	length, err := strconv.Atoi(parts[1])
	if err != nil || length < 0 {
		return "", nil, vcserr.Errorf(vcserr.ErrCorrupt, "invalid object length %q", parts[1])
	}
	if length != len(content) {
		return "", nil, vcserr.Errorf(vcserr.ErrCorrupt,
			"object length mismatch (header=%d, actual=%d)", length, len(content))
	}
	return ObjectType(parts[0]), content, nil
}

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj. Entries keep their order. Each entry is
//
//	<mode> SP <name> NUL <20-byte raw digest>
//
// The raw digest is the only binary field in the object format.
func MarshalTree(tr *TreeObj) ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range tr.Entries {
		if err := validateTreeEntry(e); err != nil {
			return nil, err
		}
		raw, err := e.Hash.raw()
		if err != nil {
			return nil, vcserr.Errorf(vcserr.ErrInvalidInput, "marshal tree entry %q: %v", e.Name, err)
		}
		buf.WriteString(e.Mode)
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

func validateTreeEntry(e TreeEntry) error {
	switch {
	case e.Mode == "" || strings.ContainsAny(e.Mode, " \x00"):
		return vcserr.Errorf(vcserr.ErrInvalidInput, "marshal tree: invalid mode %q for %q", e.Mode, e.Name)
	case e.Name == "" || e.Name == "." || e.Name == "..":
		return vcserr.Errorf(vcserr.ErrInvalidInput, "marshal tree: invalid entry name %q", e.Name)
	case strings.ContainsAny(e.Name, "/\x00"):
		return vcserr.Errorf(vcserr.ErrInvalidInput, "marshal tree: entry name %q is not a single path segment", e.Name)
	}
	return nil
}

// UnmarshalTree parses a TreeObj from its serialized form.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	pos := 0
	for pos < len(data) {
		sp := bytes.IndexByte(data[pos:], ' ')
		if sp < 0 {
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "invalid tree format: missing mode terminator at offset %d", pos)
		}
		mode := data[pos : pos+sp]
		pos += sp + 1

		nul := bytes.IndexByte(data[pos:], 0)
		if nul < 0 {
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "invalid tree format: missing name terminator at offset %d", pos)
		}
		name := data[pos : pos+nul]
		pos += nul + 1

		if !utf8.Valid(mode) || !utf8.Valid(name) {
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "invalid tree format: entry %q is not UTF-8", name)
		}
		if pos+HashSize > len(data) {
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "invalid tree format: hash too short for entry %q", name)
		}
		h := Hash(hex.EncodeToString(data[pos : pos+HashSize]))
		pos += HashSize

		tr.Entries = append(tr.Entries, TreeEntry{
			Mode: string(mode),
			Name: string(name),
			Hash: h,
		})
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (absent for the root commit)
//	author A
//	timestamp T
//	signature S  (optional)
//
//	message
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.TreeHash))
	if c.Parent != "" {
		fmt.Fprintf(&buf, "parent %s\n", string(c.Parent))
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "timestamp %d\n", c.Timestamp)
	if strings.TrimSpace(c.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// ValidateCommit reports whether c can be written and read back unchanged.
// The header values must be single lines, so a newline or NUL in the author
// or signature is ErrInvalidInput, as are malformed tree or parent hashes
// and text that is not UTF-8.
func ValidateCommit(c *CommitObj) error {
	if _, err := ParseHash(string(c.TreeHash)); err != nil {
		return fmt.Errorf("commit tree: %w", err)
	}
	if c.Parent != "" {
		if _, err := ParseHash(string(c.Parent)); err != nil {
			return fmt.Errorf("commit parent: %w", err)
		}
	}
	if err := ValidateHeaderValue("author", c.Author); err != nil {
		return err
	}
	if err := ValidateHeaderValue("signature", c.Signature); err != nil {
		return err
	}
	if !utf8.ValidString(c.Message) {
		return vcserr.Errorf(vcserr.ErrInvalidInput, "commit message is not UTF-8")
	}
	return nil
}

// ValidateHeaderValue rejects values that cannot sit on one commit header
// line.
func ValidateHeaderValue(field, v string) error {
	if strings.ContainsAny(v, "\n\x00") {
		return vcserr.Errorf(vcserr.ErrInvalidInput, "%s %q must not contain newlines or NUL bytes", field, v)
	}
	if !utf8.ValidString(v) {
		return vcserr.Errorf(vcserr.ErrInvalidInput, "%s %q is not UTF-8", field, v)
	}
	return nil
}

// UnmarshalCommit parses a CommitObj from its serialized form. Everything
// after the first blank line is the message, verbatim.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	if !utf8.Valid(data) {
		return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: not UTF-8")
	}
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: missing header/message separator")
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &CommitObj{Message: message}
	var hasTree, hasAuthor, hasTimestamp bool
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			h, err := ParseHash(val)
			if err != nil {
				return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: bad tree hash %q", val)
			}
			c.TreeHash = h
			hasTree = true
		case "parent":
			if c.Parent != "" {
				return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: more than one parent")
			}
			h, err := ParseHash(val)
			if err != nil {
				return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: bad parent hash %q", val)
			}
			c.Parent = h
		case "author":
			c.Author = val
			hasAuthor = true
		case "timestamp":
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: bad timestamp %q", val)
			}
			c.Timestamp = ts
			hasTimestamp = true
		case "signature":
			c.Signature = val
		default:
			return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: unknown header key %q", key)
		}
	}

	switch {
	case !hasTree:
		return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: missing tree")
	case !hasAuthor:
		return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: missing author")
	case !hasTimestamp:
		return nil, vcserr.Errorf(vcserr.ErrCorrupt, "unmarshal commit: missing timestamp")
	}
	return c, nil
}
