package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/odvcencio/vcs/pkg/vcserr"
)

// HashBytes computes the raw SHA-1 hash of data and returns it as a
// lowercase hex-encoded Hash.
func HashBytes(data []byte) Hash {
	sum := sha1.Sum(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashObject computes the SHA-1 of the envelope "type len\0content", which
// is exactly the byte stream Serialize produces and the store persists.
func HashObject(objType ObjectType, content []byte) Hash {
	h := sha1.New()
	h.Write(envelopeHeader(objType, len(content)))
	h.Write(content)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// ParseHash validates s as a full lowercase hex digest.
func ParseHash(s string) (Hash, error) {
	if len(s) != 2*HashSize {
		return "", vcserr.Errorf(vcserr.ErrInvalidInput, "invalid object hash %q: want %d hex characters", s, 2*HashSize)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return "", vcserr.Errorf(vcserr.ErrInvalidInput, "invalid object hash %q: not lowercase hex", s)
		}
	}
	return Hash(s), nil
}

// Short returns the first eight characters of h, for display.
func (h Hash) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// raw decodes h into its fixed-width binary form.
func (h Hash) raw() ([]byte, error) {
	b, err := hex.DecodeString(string(h))
	if err != nil {
		return nil, fmt.Errorf("decode hash %q: %w", h, err)
	}
	if len(b) != HashSize {
		return nil, fmt.Errorf("decode hash %q: got %d bytes, want %d", h, len(b), HashSize)
	}
	return b, nil
}
