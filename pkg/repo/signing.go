package repo

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/odvcencio/vcs/pkg/object"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

const commitSignaturePrefix = "sshsig-v1"

// NewSSHCommitSigner loads an unencrypted SSH private key and returns a
// signer for commit payloads, plus the key path actually used. An empty
// keyPath picks the first of ~/.ssh/id_ed25519, id_ecdsa and id_rsa.
func NewSSHCommitSigner(keyPath string) (CommitSigner, string, error) {
	resolvedPath, err := resolveSigningKeyPath(keyPath)
	if err != nil {
		return nil, "", err
	}

	raw, err := os.ReadFile(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", vcserr.Errorf(vcserr.ErrNotFound, "signing key %s not found", resolvedPath)
		}
		return nil, "", fmt.Errorf("read signing key %q: %w", resolvedPath, err)
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, "", vcserr.Errorf(vcserr.ErrInvalidInput, "parse signing key %q: %v", resolvedPath, err)
	}
	return sshCommitSigner(signer), resolvedPath, nil
}

func sshCommitSigner(signer ssh.Signer) CommitSigner {
	pubB64 := base64.StdEncoding.EncodeToString(signer.PublicKey().Marshal())
	return func(payload []byte) (string, error) {
		sig, err := signer.Sign(rand.Reader, payload)
		if err != nil {
			return "", err
		}
		sigB64 := base64.StdEncoding.EncodeToString(sig.Blob)
		return fmt.Sprintf("%s:%s:%s:%s", commitSignaturePrefix, sig.Format, pubB64, sigB64), nil
	}
}

// VerifyCommitSignature checks the SSH signature carried by c against its
// signing payload and returns the SHA256 fingerprint of the signing key.
// An unsigned commit is ErrNotFound; a bad signature is ErrCorrupt.
func VerifyCommitSignature(c *object.CommitObj) (string, error) {
	if strings.TrimSpace(c.Signature) == "" {
		return "", vcserr.Errorf(vcserr.ErrNotFound, "commit is not signed")
	}
	parts := strings.SplitN(c.Signature, ":", 4)
	if len(parts) != 4 || parts[0] != commitSignaturePrefix {
		return "", vcserr.Errorf(vcserr.ErrCorrupt, "unsupported signature encoding")
	}
	pubRaw, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", vcserr.Errorf(vcserr.ErrCorrupt, "signature public key: %v", err)
	}
	pub, err := ssh.ParsePublicKey(pubRaw)
	if err != nil {
		return "", vcserr.Errorf(vcserr.ErrCorrupt, "signature public key: %v", err)
	}
	blob, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return "", vcserr.Errorf(vcserr.ErrCorrupt, "signature blob: %v", err)
	}

	sig := &ssh.Signature{Format: parts[1], Blob: blob}
	if err := pub.Verify(object.CommitSigningPayload(c), sig); err != nil {
		return "", vcserr.Errorf(vcserr.ErrCorrupt, "signature does not verify: %v", err)
	}
	return ssh.FingerprintSHA256(pub), nil
}

func resolveSigningKeyPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		return expandUserPath(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	candidates := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
	for _, candidate := range candidates {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", vcserr.Errorf(vcserr.ErrNotFound, "no default SSH private key found in ~/.ssh (id_ed25519, id_ecdsa, id_rsa)")
}

func expandUserPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
