package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
)

// Sink stores unmodified source payloads for audit and replay.
// Put is idempotent: writing the same object path twice replaces the
// object, so redelivered work items are safe.
//
//go:generate mockgen -source=archive.go -destination=../mocks/archive.go -package=mocks -mock_names=Sink=MockArchiveSink
type Sink interface {
	// Put writes one raw payload and returns the object reference stored
	// alongside the parsed record
	Put(ctx context.Context, ref string, payload []byte) error

	// Get reads a previously archived payload by its reference
	Get(ctx context.Context, ref string) ([]byte, error)
}

// ObjectRef builds the archive path for one piece of content:
// {source}/{cycle-date}/{entityID}_{postID}.json
func ObjectRef(source domain.SourceName, cycleDate string, entityID int64, postID string) string {
	return path.Join(string(source), cycleDate, fmt.Sprintf("%d_%s.json", entityID, postID))
}

// fsSink is a filesystem-backed Sink rooted at a single directory
type fsSink struct {
	root string
	fs   adapter.FileSystem
}

// NewFSSink creates a filesystem-backed archive sink
func NewFSSink(root string, fs adapter.FileSystem) Sink {
	return &fsSink{root: root, fs: fs}
}

// Put writes the payload to a temp file and renames it into place so a
// crashed write never leaves a truncated object behind
func (s *fsSink) Put(ctx context.Context, ref string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.root, filepath.FromSlash(ref))
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp := target + ".tmp"
	if err := s.fs.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write archive object: %w", err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		// Best effort cleanup of the orphaned temp file
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to finalize archive object: %w", err)
	}

	return nil
}

// Get reads a previously archived payload by its reference
func (s *fsSink) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.fs.ReadFile(filepath.Join(s.root, filepath.FromSlash(ref)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive object %s not found: %w", ref, err)
		}
		return nil, fmt.Errorf("failed to read archive object: %w", err)
	}
	return data, nil
}
