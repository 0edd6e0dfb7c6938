package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"splashpark/internal/config"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// BackupService snapshots the sqlite file on a schedule and prunes old
// copies past the retention window.
type BackupService struct {
	dbPath string
	cfg    config.BackupConfig
	logger *zerolog.Logger
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{dbPath: dbPath, cfg: cfg, logger: logger}
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("backup service disabled")
		return
	}

	interval := 24 * time.Hour
	if s.cfg.Schedule != "" {
		if d, err := time.ParseDuration(s.cfg.Schedule); err == nil {
			interval = d
		} else {
			s.logger.Warn().Err(err).Str("schedule", s.cfg.Schedule).Msg("invalid backup schedule, using 24h")
		}
	}

	s.logger.Info().Dur("interval", interval).Msg("backup service started")

	if err := s.Backup(); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Backup(); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.prune()
		}
	}
}

// Backup writes a consistent snapshot next to the configured storage path.
// VACUUM INTO is safe against concurrent writers.
func (s *BackupService) Backup() error {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("backup_%s.db", time.Now().Format("20060102_150405"))
	target := filepath.Join(s.cfg.StoragePath, name)

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", target)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", target, err)
	}

	s.logger.Info().Str("path", target).Msg("backup completed")
	return nil
}

func (s *BackupService) prune() {
	if s.cfg.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", entry.Name()).Msg("deleting old backup")
			_ = os.Remove(filepath.Join(s.cfg.StoragePath, entry.Name()))
		}
	}
}
