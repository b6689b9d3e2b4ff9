package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const snapshotFile = "catalog.json"

// FilesystemSnapshotter dumps and restores a catalog as one JSON document
// per snapshot id under baseDir.
type FilesystemSnapshotter struct {
	baseDir string
}

func NewFilesystemSnapshotter(baseDir string) *FilesystemSnapshotter {
	return &FilesystemSnapshotter{baseDir: baseDir}
}

// WriteSnapshot writes every entry of st and returns the file path.
func (f *FilesystemSnapshotter) WriteSnapshot(snapshotID string, st Store) (string, error) {
	if err := os.MkdirAll(filepath.Join(f.baseDir, snapshotID), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	var dump []Entry
	if err := st.Range(func(e Entry) error {
		dump = append(dump, e)
		return nil
	}); err != nil {
		return "", err
	}
	sort.Slice(dump, func(i, j int) bool { return dump[i].ID < dump[j].ID })

	file := filepath.Join(f.baseDir, snapshotID, snapshotFile)
	out, err := os.Create(file)
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	defer out.Close()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	return file, out.Sync()
}

// RestoreSnapshot replaces the contents of st with the snapshot.
func (f *FilesystemSnapshotter) RestoreSnapshot(snapshotID string, st Store) (int, error) {
	entries, err := ReadEntries(filepath.Join(f.baseDir, snapshotID, snapshotFile))
	if err != nil {
		return 0, err
	}
	if err := st.LoadAll(entries); err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}
	return len(entries), nil
}

// ReadEntries decodes a JSON array of entries.
func ReadEntries(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}
