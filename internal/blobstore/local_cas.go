package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const casAlgorithmPrefix = "sha256"

// LocalCAS stores carrier bytes in a local content-addressed tree:
// <root>/sha256/<aa>/<digest>. Identical carriers dedup naturally.
type LocalCAS struct {
	root string
}

var _ CarrierStore = (*LocalCAS)(nil)

// NewLocalCAS creates a local CAS rooted at root.
func NewLocalCAS(root string) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("carrier store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalCAS{root: abs}, nil
}

// Put writes carrier bytes under their SHA-256 digest. The write goes
// through a temp file and rename so a crash never leaves a torn blob at
// its final path.
func (c *LocalCAS) Put(ctx context.Context, data []byte) (string, error) {
	if c == nil {
		return "", fmt.Errorf("carrier store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	key := keyFromDigest(digest)
	dst := filepath.Join(c.root, filepath.FromSlash(key))

	if _, err := os.Stat(dst); err == nil {
		return key, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Join(c.root, "tmp"), "put-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		// A concurrent Put may have won; dedup makes that fine.
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return key, nil
		}
		_ = os.Remove(tmpPath)
		return "", err
	}

	return key, nil
}

// Get reads carrier bytes by key.
func (c *LocalCAS) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("carrier store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Delete removes a carrier object. Missing files are ignored.
func (c *LocalCAS) Delete(ctx context.Context, key string) error {
	if c == nil {
		return fmt.Errorf("carrier store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func keyFromDigest(digest string) string {
	return casAlgorithmPrefix + "/" + digest[:2] + "/" + digest
}

func (c *LocalCAS) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != casAlgorithmPrefix || len(parts[1]) != 2 ||
		len(parts[2]) != 64 || !isHex(parts[2]) || parts[2][:2] != parts[1] {
		return "", fmt.Errorf("invalid carrier key %q", key)
	}
	return filepath.Join(c.root, parts[0], parts[1], parts[2]), nil
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
