// Package store reads and writes fetched items and their icons under a data directory:
//
//	<dir>/items/<id>.json
//	<dir>/icons/<icon>.png
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ogri-la/twowdb-fetch-go/src/types"
	"github.com/ogri-la/twowdb-fetch-go/src/validation"
)

// FreshnessWindow is how long a saved item is considered up to date.
const FreshnessWindow = 30 * 24 * time.Hour

var ErrNotImage = errors.New("not an image")

// Store is a data directory of items and icons.
type Store struct {
	dir string
	now func() time.Time
}

// New creates a Store rooted at dir. Directories are created as needed.
func New(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) ItemsDir() string {
	return filepath.Join(s.dir, "items")
}

func (s *Store) IconsDir() string {
	return filepath.Join(s.dir, "icons")
}

func (s *Store) ItemPath(itemID int) string {
	return filepath.Join(s.ItemsDir(), strconv.Itoa(itemID)+".json")
}

// IconPath is where an icon is kept. Icon names are lowercased.
func (s *Store) IconPath(icon string) string {
	return filepath.Join(s.IconsDir(), strings.ToLower(icon)+".png")
}

// MarshalRecord encodes a record as it is written to disk: indented, without HTML escaping.
func MarshalRecord(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveItem validates and writes a record, replacing any previous version.
// Replacing a record that is still fresh is allowed but logged.
func (s *Store) SaveItem(record types.ItemRecord) (string, error) {
	if err := validation.ValidateRecord(record); err != nil {
		return "", fmt.Errorf("refusing to save item %d: %w", record.ID, err)
	}

	if fresh, lastUpdated := s.IsFresh(record.ID); fresh {
		slog.Warn("item data is still fresh, overwriting anyway", "item-id", record.ID, "last-updated", lastUpdated)
	}

	data, err := MarshalRecord(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode item %d: %w", record.ID, err)
	}

	if err := os.MkdirAll(s.ItemsDir(), 0755); err != nil {
		return "", fmt.Errorf("failed to create items directory: %w", err)
	}

	path := s.ItemPath(record.ID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write item file: %w", err)
	}

	slog.Info("saved item", "item-id", record.ID, "name", record.Name, "path", path)
	return path, nil
}

// IsFresh reports whether a saved copy of the item was updated within the FreshnessWindow.
// A missing or unreadable copy is not fresh.
func (s *Store) IsFresh(itemID int) (bool, string) {
	record, err := s.LoadItem(itemID)
	if err != nil {
		return false, ""
	}
	updated, err := time.ParseInLocation(types.LastUpdatedLayout, record.LastUpdated, time.Local)
	if err != nil {
		return false, record.LastUpdated
	}
	return s.now().Sub(updated) < FreshnessWindow, record.LastUpdated
}

// LoadItem reads a saved item.
func (s *Store) LoadItem(itemID int) (types.ItemRecord, error) {
	return readRecord(s.ItemPath(itemID))
}

func readRecord(path string) (types.ItemRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ItemRecord{}, fmt.Errorf("failed to read item file: %w", err)
	}
	var record types.ItemRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return types.ItemRecord{}, fmt.Errorf("failed to parse item file '%s': %w", path, err)
	}
	return record, nil
}

// LoadItems reads every saved item, ordered by id.
// Files that can't be read are skipped with a warning.
func (s *Store) LoadItems() ([]types.ItemRecord, error) {
	paths, err := filepath.Glob(filepath.Join(s.ItemsDir(), "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	records := make([]types.ItemRecord, 0, len(paths))
	for _, path := range paths {
		record, err := readRecord(path)
		if err != nil {
			slog.Warn("skipping unreadable item file", "path", path, "error", err)
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// HasIcon reports whether the icon has already been saved.
func (s *Store) HasIcon(icon string) bool {
	_, err := os.Stat(s.IconPath(icon))
	return err == nil
}

// SaveIcon writes icon data unless the icon already exists. Data that isn't an image is refused.
// It returns false when nothing was written.
func (s *Store) SaveIcon(icon string, data []byte) (bool, error) {
	if s.HasIcon(icon) {
		slog.Debug("icon already saved", "icon", icon)
		return false, nil
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return false, fmt.Errorf("icon '%s' is %s: %w", icon, mtype.String(), ErrNotImage)
	}

	if err := os.MkdirAll(s.IconsDir(), 0755); err != nil {
		return false, fmt.Errorf("failed to create icons directory: %w", err)
	}

	if err := writeFileAtomic(s.IconPath(icon), data); err != nil {
		return false, fmt.Errorf("failed to write icon file: %w", err)
	}
	return true, nil
}

// writeFileAtomic writes to a temporary file in the same directory and renames it into place,
// so a file at `path` is always complete.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
