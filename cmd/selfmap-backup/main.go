// cmd/selfmap-backup snapshots the selfmap SQLite database, prunes old
// snapshots, and restores from a chosen snapshot. Run it from cron for
// scheduled backups; the MCP server keeps serving while a snapshot is taken.
//
// Usage:
//
//	selfmap-backup                  take a snapshot, then prune
//	selfmap-backup -list            list available snapshots
//	selfmap-backup -restore <path>  restore the database from a snapshot
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/selfmap/selfmap/internal/backup"
	"github.com/selfmap/selfmap/internal/config"
)

func main() {
	log.SetPrefix("selfmap-backup: ")
	log.SetFlags(0)

	var (
		list    = flag.Bool("list", false, "list snapshots and exit")
		restore = flag.String("restore", "", "restore the database from this snapshot")
		keep    = flag.Int("keep", 14, "number of snapshots to retain after a backup")
		dir     = flag.String("dir", "", "snapshot directory (default: <data path>/backups)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.StorageEngine != "sqlite" {
		log.Fatalf("backups are only supported for the sqlite engine (use pg_dump for postgres)")
	}

	dbPath := filepath.Join(cfg.Storage.DataPath, "selfmap.db")
	backupDir := *dir
	if backupDir == "" {
		backupDir = filepath.Join(cfg.Storage.DataPath, "backups")
	}

	switch {
	case *list:
		snapshots, err := backup.List(backupDir)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if len(snapshots) == 0 {
			fmt.Println("no snapshots")
			return
		}
		for _, s := range snapshots {
			fmt.Printf("%s\t%d bytes\t%s\n", s.Timestamp.Format("2006-01-02 15:04:05"), s.Size, s.Path)
		}

	case *restore != "":
		if err := backup.Restore(*restore, dbPath); err != nil {
			log.Fatalf("restore failed: %v", err)
		}
		log.Printf("restored %s from %s", dbPath, *restore)
		log.Printf("previous database kept at %s.pre-restore", dbPath)

	default:
		info, err := backup.Snapshot(dbPath, backupDir)
		if err != nil {
			log.Fatalf("backup failed: %v", err)
		}
		log.Printf("snapshot %s (%d bytes)", info.Path, info.Size)

		removed, err := backup.Prune(backupDir, *keep)
		if err != nil {
			// The snapshot itself succeeded; report and move on.
			log.Printf("warning: prune failed: %v", err)
			os.Exit(0)
		}
		if removed > 0 {
			log.Printf("pruned %d old snapshots", removed)
		}
	}
}
