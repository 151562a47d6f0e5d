package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

// migrationLogger adapts ectologger to migrate.Logger.
type migrationLogger struct {
	ectologger.Logger
}

func (l migrationLogger) Verbose() bool {
	return false
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.Infof(format, v...)
}

type MigrationConfig struct {
	FolderPath string
	// Version pins the target version. Zero migrates to the latest.
	Version uint
	// Force marks the schema clean at this version before migrating.
	Force int
	// AutoRollback forces a dirty schema back to the previous version after a failure.
	AutoRollback bool
}

type MigrationService struct {
	db     DB
	config MigrationConfig
	logger ectologger.Logger
}

func NewMigrationService(db DB, config MigrationConfig, logger ectologger.Logger) *MigrationService {
	return &MigrationService{db: db, config: config, logger: logger}
}

func (ms *MigrationService) folder() (string, error) {
	folder := ms.config.FolderPath
	if !filepath.IsAbs(folder) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		folder = filepath.Join(wd, folder)
	}
	if _, err := os.Stat(folder); err != nil {
		return "", errors.Wrapf(err, "migration folder %s does not exist", folder)
	}
	return folder, nil
}

// Up applies pending migrations.
func (ms *MigrationService) Up(ctx context.Context) error {
	logger := ms.logger.WithContext(ctx)

	folder, err := ms.folder()
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(ms.db.Raw(), &postgres.Config{})
	if err != nil {
		logger.WithError(err).Error("Failed to create migration driver")
		return errors.Wrap(err, "failed to create migration driver")
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+folder, "postgres", driver)
	if err != nil {
		logger.WithError(err).Error("Failed to create migrate instance")
		return errors.Wrap(err, "failed to create migrate instance")
	}
	m.Log = migrationLogger{Logger: ms.logger}

	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			return errors.Wrapf(err, "failed to force version %d", ms.config.Force)
		}
	}

	previous, _, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		logger.WithError(err).Warn("Failed to read current migration version")
	}

	start := time.Now()
	if ms.config.Version != 0 {
		err = m.Migrate(ms.config.Version)
	} else {
		err = m.Up()
	}
	logger.Infof("Database migrations finished in %v", time.Since(start))

	return ms.handleError(ctx, m, err, previous, folder)
}

func (ms *MigrationService) handleError(ctx context.Context, m *migrate.Migrate, err error, previous uint, folder string) error {
	logger := ms.logger.WithContext(ctx)

	switch {
	case err == nil:
		logger.Info("Successfully applied migrations")
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
		return nil
	}

	version, dirty, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		logger.WithError(versionErr).Error("Failed to read migration version after failure")
		return errors.Wrap(err, "migration failed")
	}

	if ms.config.AutoRollback && dirty {
		target := int(previous)
		if previous == 0 && version > 0 {
			target = int(version) - 1
		}
		logger.WithError(err).Warnf("Database is dirty at version %d, forcing version %d", version, target)
		if forceErr := m.Force(target); forceErr != nil {
			return errors.Wrapf(forceErr, "failed to force version %d", target)
		}
	}

	latest, latestErr := LatestVersion(folder)
	if latestErr == nil {
		logger.Errorf("Migration failed at version %d (dirty=%t, latest=%d)", version, dirty, latest)
	}
	return errors.Wrap(err, "migration failed")
}

var migrationFile = regexp.MustCompile(`^(\d+)_.*\.up\.sql$`)

// LatestVersion returns the highest up-migration version in folder.
func LatestVersion(folder string) (int, error) {
	files, err := os.ReadDir(folder)
	if err != nil {
		return 0, err
	}

	var versions []int
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationFile.FindStringSubmatch(file.Name())
		if len(matches) < 2 {
			continue
		}
		v, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, err
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return 0, fmt.Errorf("no migration files found in %s", folder)
	}
	sort.Ints(versions)
	return versions[len(versions)-1], nil
}
