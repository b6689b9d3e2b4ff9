package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dwh/internal/catalog"
)

var (
	backendFlag     string
	catalogDirFlag  string
	snapshotDirFlag string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the reference catalog of users and restaurants.",
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load users and restaurants from a YAML or JSON file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := loadCatalogFile(args[0])
		if err != nil {
			return err
		}
		return withStore(func(st catalog.Store) error {
			if err := st.Put(entries...); err != nil {
				return err
			}
			color.Green("imported %d entries into %s\n", len(entries), catalogDirFlag)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one catalog entry.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st catalog.Store) error {
			e, err := st.Get(args[0])
			if err != nil {
				return err
			}
			entry, ok := e.Get()
			if !ok {
				color.Yellow("%s not found\n", args[0])
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entry)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [snapshot-id]",
	Short: "Write the catalog to a JSON snapshot.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := time.Now().UTC().Format("20060102T150405Z")
		if len(args) == 1 {
			id = args[0]
		}
		return withStore(func(st catalog.Store) error {
			snap := catalog.NewFilesystemSnapshotter(snapshotDirFlag)
			path, err := snap.WriteSnapshot(id, st)
			if err != nil {
				return err
			}
			entries, err := catalog.ReadEntries(path)
			if err != nil {
				return err
			}
			if err := snap.PublishLatest(id, len(entries)); err != nil {
				return err
			}
			color.Green("snapshot written: %s (%d entries)\n", path, len(entries))
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [snapshot-id]",
	Short: "Replace the catalog with a snapshot, the latest one by default.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := catalog.NewFilesystemSnapshotter(snapshotDirFlag)
		return withStore(func(st catalog.Store) error {
			if len(args) == 0 {
				m, err := snap.RestoreLatest(st)
				if err != nil {
					return err
				}
				color.Green("restored %d entries from %s\n", m.Entries, m.SnapshotID)
				return nil
			}
			n, err := snap.RestoreSnapshot(args[0], st)
			if err != nil {
				return err
			}
			color.Green("restored %d entries from %s\n", n, args[0])
			return nil
		})
	},
}

func init() {
	catalogCmd.PersistentFlags().StringVar(&backendFlag, "backend", "pebble", "catalog backend: pebble or badger")
	catalogCmd.PersistentFlags().StringVar(&catalogDirFlag, "dir", "data/catalog", "catalog data directory")
	catalogCmd.PersistentFlags().StringVar(&snapshotDirFlag, "snapshot-dir", "snapshots", "snapshot directory")
	catalogCmd.AddCommand(importCmd, getCmd, exportCmd, restoreCmd)
}

func withStore(fn func(st catalog.Store) error) error {
	st, closer, err := catalog.Open(backendFlag, catalogDirFlag, "")
	if err != nil {
		return err
	}
	defer closer.Close()
	return fn(st)
}

// loadCatalogFile reads either a JSON array of entries or a YAML/JSON/TOML
// document with "users" and "restaurants" lists.
func loadCatalogFile(path string) ([]catalog.Entry, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if strings.HasPrefix(strings.TrimSpace(string(b)), "[") {
			return catalog.ReadEntries(path)
		}
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var entries []catalog.Entry
	for _, key := range []string{"restaurants", "users"} {
		raw := v.Get(key)
		if raw == nil {
			continue
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		var part []catalog.Entry
		if err := json.Unmarshal(b, &part); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		entries = append(entries, part...)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s has no users or restaurants", path)
	}
	return entries, nil
}
