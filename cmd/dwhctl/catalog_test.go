package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCatalogFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := `restaurants:
  - _id: R1
    name: Cafe
    menu:
      - _id: P1
        name: Tea
        category: drinks
        price: 50
users:
  - _id: U1
    name: Ann
    login: ann
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	entries, err := loadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "R1", entries[0].ID)
	require.Equal(t, "drinks", entries[0].Menu[0].Category)
	require.Equal(t, "50", entries[0].Menu[0].Price.String())
	require.Equal(t, "ann", entries[1].Login)
}

func TestLoadCatalogFile_JSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"_id":"U1","name":"Ann"}]`), 0o644))
	entries, err := loadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLoadCatalogFile_EmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("other: 1\n"), 0o644))
	_, err := loadCatalogFile(path)
	require.Error(t, err)
}
