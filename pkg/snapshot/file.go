package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore keeps each stage in {dir}/{conversation_id}_{stage}.json.
// Files older than the TTL are treated as absent and removed on read.
type FileStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileStore creates the directory if needed. A ttl <= 0 disables expiry.
func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Path returns the file backing one stage of a conversation.
func (s *FileStore) Path(conversationID string, stage Stage) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", conversationID, stage))
}

func (s *FileStore) Put(_ context.Context, conversationID string, stage Stage, v any) error {
	if err := s.validate(conversationID, stage); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}

	// write-then-rename so a reader never sees a half-written document
	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", stage, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot %s: %w", stage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot %s: %w", stage, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(conversationID, stage)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot %s: %w", stage, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, conversationID string, stage Stage, out any) error {
	if err := s.validate(conversationID, stage); err != nil {
		return err
	}

	path := s.Path(conversationID, stage)
	if s.expired(path) {
		os.Remove(path)
		return ErrNotFound
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", stage, err)
	}
	return decode(data, out)
}

func (s *FileStore) Exists(_ context.Context, conversationID string, stage Stage) (bool, error) {
	if err := s.validate(conversationID, stage); err != nil {
		return false, err
	}

	path := s.Path(conversationID, stage)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check snapshot %s: %w", stage, err)
	}
	return !s.expired(path), nil
}

func (s *FileStore) Delete(_ context.Context, conversationID string, stages ...Stage) error {
	for _, stage := range stages {
		if err := s.validate(conversationID, stage); err != nil {
			return err
		}
		if err := os.Remove(s.Path(conversationID, stage)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete snapshot %s: %w", stage, err)
		}
	}
	return nil
}

func (s *FileStore) Purge(ctx context.Context, conversationID string) error {
	return s.Delete(ctx, conversationID, Stages...)
}

func (s *FileStore) validate(conversationID string, stage Stage) error {
	if err := validate(conversationID, stage); err != nil {
		return err
	}
	if strings.ContainsAny(conversationID, `/\`) || conversationID == "." || conversationID == ".." {
		return fmt.Errorf("invalid conversation id %q", conversationID)
	}
	return nil
}

func (s *FileStore) expired(path string) bool {
	if s.ttl <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return s.now().Sub(info.ModTime()) > s.ttl
}
