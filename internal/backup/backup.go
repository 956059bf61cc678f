// Package backup creates and restores point-in-time snapshots of the selfmap
// SQLite database, with integrity verification and a keep-last-N retention
// policy. Postgres deployments are expected to use pg_dump instead.
package backup

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const snapshotPrefix = "selfmap-backup-"

// Info describes one snapshot file.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Snapshot writes a consistent copy of the database at dbPath into dir and
// verifies it. VACUUM INTO produces a valid point-in-time copy even while the
// database is in WAL mode with an active writer.
func Snapshot(dbPath, dir string) (*Info, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := time.Now()
	name := snapshotPrefix + now.Format("20060102-150405.000000") + ".db"
	dest := filepath.Join(dir, name)

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}
	if err := Verify(dest); err != nil {
		os.Remove(dest)
		return nil, err
	}

	fi, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	return &Info{Path: dest, Timestamp: now, Size: fi.Size()}, nil
}

// Verify runs SQLite's integrity check against a snapshot file.
func Verify(path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Restore replaces the database at dbPath with the snapshot. The database
// must not be open in another process. The previous database is kept at
// dbPath + ".pre-restore" so a bad restore can be undone by hand.
func Restore(snapshotPath, dbPath string) error {
	if err := Verify(snapshotPath); err != nil {
		return err
	}

	if _, err := os.Stat(dbPath); err == nil {
		if err := copyFile(dbPath, dbPath+".pre-restore"); err != nil {
			return fmt.Errorf("failed to preserve current database: %w", err)
		}
		// VACUUM INTO leaves no sidecar files, but a live database may have
		// them; stale WAL frames would shadow the restored content.
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	}

	if err := copyFile(snapshotPath, dbPath); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return Verify(dbPath)
}

// List returns the snapshots in dir, newest first.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var snapshots []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, ".db") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		ts, err := time.ParseInLocation("20060102-150405.000000",
			strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), ".db"), time.Local)
		if err != nil {
			ts = fi.ModTime()
		}
		snapshots = append(snapshots, Info{
			Path:      filepath.Join(dir, name),
			Timestamp: ts,
			Size:      fi.Size(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

// Prune deletes all but the newest keep snapshots in dir. It returns the
// number of snapshots removed.
func Prune(dir string, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1")
	}
	snapshots, err := List(dir)
	if err != nil {
		return 0, err
	}
	if len(snapshots) <= keep {
		return 0, nil
	}

	removed := 0
	var lastErr error
	for _, s := range snapshots[keep:] {
		if err := os.Remove(s.Path); err != nil {
			lastErr = err
			continue
		}
		removed++
	}
	if lastErr != nil {
		return removed, fmt.Errorf("failed to delete some snapshots: %w", lastErr)
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
