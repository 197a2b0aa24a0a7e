// Package filestore keeps engine state in three JSON files in one directory.
//
// Files are replaced atomically: each save writes a temp file in the same
// directory, syncs it, renames it over the old file and syncs the directory.
// Files written by the earlier Node.js bot (plain id arrays, chatId /
// messageId pairs) are read as well.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rickgao/feedwarden/internal/model"
)

// File names inside the store directory.
const (
	AnnouncedFile = "announced.json"
	RetractedFile = "retracted.json"
	MessagesFile  = "messages.json"
)

// Store is a directory of JSON records.
type Store struct {
	dir string
	mu  sync.Mutex // serializes writers to the same file
}

// Open creates dir if needed and returns a store rooted there.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage path is required")
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error {
	return nil
}

// LoadAnnounced reads the announced id set.
func (s *Store) LoadAnnounced(ctx context.Context) ([]string, error) {
	var ids []flexID
	if err := s.read(ctx, AnnouncedFile, &ids); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, string(id))
		}
	}
	return out, nil
}

// LoadRetracted reads the retraction records.
func (s *Store) LoadRetracted(ctx context.Context) ([]model.RetractionRecord, error) {
	var recs []retraction
	if err := s.read(ctx, RetractedFile, &recs); err != nil {
		return nil, err
	}
	out := make([]model.RetractionRecord, 0, len(recs))
	for _, r := range recs {
		if r.ItemID != "" {
			out = append(out, model.RetractionRecord(r))
		}
	}
	return out, nil
}

// LoadMessages reads the item to message mapping.
func (s *Store) LoadMessages(ctx context.Context) (map[string][]model.MessageRef, error) {
	var raw map[string][]messageRef
	if err := s.read(ctx, MessagesFile, &raw); err != nil {
		return nil, err
	}
	out := make(map[string][]model.MessageRef, len(raw))
	for id, refs := range raw {
		for _, ref := range refs {
			if ref.Destination == "" || ref.Handle == "" {
				continue
			}
			out[id] = append(out[id], model.MessageRef(ref))
		}
	}
	return out, nil
}

// SaveAnnounced replaces the announced id set.
func (s *Store) SaveAnnounced(ctx context.Context, ids []string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return s.write(ctx, AnnouncedFile, sorted)
}

// SaveRetracted replaces the retraction records.
func (s *Store) SaveRetracted(ctx context.Context, records []model.RetractionRecord) error {
	if records == nil {
		records = []model.RetractionRecord{}
	}
	return s.write(ctx, RetractedFile, records)
}

// SaveMessages replaces the item to message mapping.
func (s *Store) SaveMessages(ctx context.Context, messages map[string][]model.MessageRef) error {
	if messages == nil {
		messages = map[string][]model.MessageRef{}
	}
	return s.write(ctx, MessagesFile, messages)
}

// read decodes name into v. A missing or blank file leaves v untouched.
func (s *Store) read(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// write atomically replaces name with the JSON encoding of v.
func (s *Store) write(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return syncDir(s.dir)
}

// syncDir flushes the directory entry after a rename. Platforms that cannot
// sync a directory are ignored.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer d.Close()
	_ = d.Sync()
	return nil
}
