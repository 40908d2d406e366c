package slot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileSlot stores each key as a JSON file in a directory.
//
// Writes go to a temp file in the same directory which is synced and then
// renamed over the target, so readers never see a partially written value.
type FileSlot struct {
	dir string
}

// NewFileSlot creates a FileSlot rooted at dir, creating it if needed.
func NewFileSlot(dir string) (*FileSlot, error) {
	if dir == "" {
		return nil, fmt.Errorf("create file slot: directory must be set")
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create file slot directory: %w", err)
	}

	return &FileSlot{dir: dir}, nil
}

// Path returns the file that holds key.
func (f *FileSlot) Path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Read returns the contents of the file for key.
func (f *FileSlot) Read(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("read slot: %w", ctx.Err())
	default:
	}

	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("read slot file: %w", err)
	}

	return data, nil
}

// Write atomically replaces the file for key.
func (f *FileSlot) Write(ctx context.Context, key string, data []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("write slot: %w", ctx.Err())
	default:
	}

	if err := ValidateKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, f.Path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Close is a no-op; files are opened per operation.
func (f *FileSlot) Close() error {
	return nil
}
