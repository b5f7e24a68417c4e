package download

import (
	"crypto/md5"  //nolint:gosec // legacy repositories still publish md5 digests
	"crypto/sha1" //nolint:gosec // legacy repositories still publish sha1 digests
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	pkgerrors "github.com/glorpus-work/hif/pkg/errors"
)

var hashes = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha":    sha1.New,
	"sha1":   sha1.New,
	"sha224": sha256.New224,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// SupportedChecksum reports whether checksumType can be verified.
func SupportedChecksum(checksumType string) bool {
	_, ok := hashes[normalizeType(checksumType)]
	return ok
}

// HashFile returns the hex digest of the file at path.
func HashFile(path, checksumType string) (string, error) {
	newHash, ok := hashes[normalizeType(checksumType)]
	if !ok {
		return "", fmt.Errorf("checksum type %q: %w", checksumType, pkgerrors.ErrValidation)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", pkgerrors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()
	h := newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", pkgerrors.Wrap(err, "hashing")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile reports whether the file at path has the given digest.
func VerifyFile(path, checksumType, want string) (bool, error) {
	got, err := HashFile(path, checksumType)
	if err != nil {
		return false, err
	}
	return got == normalizeHex(want), nil
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return "sha256"
	}
	return t
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
