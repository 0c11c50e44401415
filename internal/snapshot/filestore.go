package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileKV stores one JSON file per shop under a base directory. Writes go to
// a temp file in the same directory and are promoted with an atomic rename,
// so a crash mid-write leaves the prior record intact.
type FileKV struct {
	dir string
}

// NewFileKV creates a filesystem-backed KV rooted at dir.
func NewFileKV(dir string) (*FileKV, error) {
	cleaned := filepath.Clean(dir)
	if err := os.MkdirAll(cleaned, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileKV{dir: cleaned}, nil
}

// Read fetches the snapshot payload for a shop.
func (kv *FileKV) Read(_ context.Context, shopID string) ([]byte, bool, error) {
	payload, err := os.ReadFile(kv.pathFor(shopID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return payload, true, nil
}

// WriteAtomic replaces the snapshot payload for a shop.
func (kv *FileKV) WriteAtomic(_ context.Context, shopID string, payload []byte) error {
	final := kv.pathFor(shopID)

	temp, err := os.CreateTemp(kv.dir, filepath.Base(final)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	tempPath := temp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := temp.Write(payload); err != nil {
		_ = temp.Close()
		return fmt.Errorf("failed to write temp snapshot file: %w", err)
	}
	if err := temp.Sync(); err != nil {
		_ = temp.Close()
		return fmt.Errorf("failed to sync temp snapshot file: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("failed to close temp snapshot file: %w", err)
	}
	if err := os.Rename(tempPath, final); err != nil {
		return fmt.Errorf("failed to promote snapshot file: %w", err)
	}
	cleanup = false
	return nil
}

func (kv *FileKV) pathFor(shopID string) string {
	return filepath.Join(kv.dir, sanitizeShopID(shopID)+".json")
}

// sanitizeShopID keeps shop domains filesystem-safe without parsing them.
func sanitizeShopID(shopID string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return replacer.Replace(shopID)
}

var _ KV = (*FileKV)(nil)
