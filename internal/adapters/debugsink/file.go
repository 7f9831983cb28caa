// Package debugsink keeps a diagnostic copy of the last outgoing routing
// payload. Every sink is best-effort.
package debugsink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samirrijal/routegate/internal/core/domain"
)

// File overwrites a single file with the latest payload.
type File struct {
	path string
}

// NewFile creates a file sink writing to path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Record writes the payload as indented JSON. The write goes through a
// temporary file and a rename so concurrent requests never leave a torn file.
func (f *File) Record(ctx context.Context, payload *domain.RoutingPayload) error {
	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return fmt.Errorf("debugsink: file: marshal: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".payload-*")
	if err != nil {
		return fmt.Errorf("debugsink: file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("debugsink: file: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("debugsink: file: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("debugsink: file: rename: %w", err)
	}
	return nil
}
