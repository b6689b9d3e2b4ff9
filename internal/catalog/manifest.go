package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const manifestFile = "manifest.latest.json"

// ErrNoSnapshot is returned when no snapshot has been recorded yet.
var ErrNoSnapshot = errors.New("no catalog snapshot")

// Manifest points at the most recent snapshot.
type Manifest struct {
	SnapshotID           string `json:"snapshotId"`
	Entries              int    `json:"entries"`
	CreatedAtEpochSecond int64  `json:"createdAt"`
}

// PublishLatest records snapshotID as the latest snapshot.
func (f *FilesystemSnapshotter) PublishLatest(snapshotID string, entries int) error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	m := Manifest{SnapshotID: snapshotID, Entries: entries, CreatedAtEpochSecond: time.Now().UTC().Unix()}
	b, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	tmp := filepath.Join(f.baseDir, manifestFile+".tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, filepath.Join(f.baseDir, manifestFile))
}

func (f *FilesystemSnapshotter) ReadLatest() (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(f.baseDir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, ErrNoSnapshot
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}

// RestoreLatest restores the snapshot named by the manifest.
func (f *FilesystemSnapshotter) RestoreLatest(st Store) (Manifest, error) {
	m, err := f.ReadLatest()
	if err != nil {
		return Manifest{}, err
	}
	if _, err := f.RestoreSnapshot(m.SnapshotID, st); err != nil {
		return Manifest{}, err
	}
	return m, nil
}
