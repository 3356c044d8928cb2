package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/neurobridge-authoring/internal/platform/envutil"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

// Service owns the gorm handle for whichever dialect was opened.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// PostgresDSN builds the connection string from POSTGRES_DSN or the POSTGRES_* parts.
func PostgresDSN() string {
	if dsn := envutil.String("POSTGRES_DSN", ""); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		envutil.String("POSTGRES_USER", "postgres"),
		envutil.String("POSTGRES_PASSWORD", ""),
		envutil.String("POSTGRES_HOST", "localhost"),
		envutil.String("POSTGRES_PORT", "5432"),
		envutil.String("POSTGRES_NAME", "authoring"),
		envutil.String("POSTGRES_SSLMODE", "disable"),
	)
}

func NewPostgresService(logg *logger.Logger, dsn string) (*Service, error) {
	serviceLog := logg.With("service", "PostgresService")
	if dsn == "" {
		dsn = PostgresDSN()
	}

	serviceLog.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), Config(gormLogger.Warn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &Service{db: db, log: serviceLog}, nil
}

// NewSQLiteService opens a local database file (or ":memory:") with the same
// schema. Used by contentctl and tests.
func NewSQLiteService(logg *logger.Logger, path string) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")
	db, err := OpenSQLite(path, gormLogger.Warn)
	if err != nil {
		return nil, err
	}
	return &Service{db: db, log: serviceLog}, nil
}

// OpenSQLite opens path with a single connection; SQLite serializes writers anyway
// and an in-memory database exists per connection.
func OpenSQLite(path string, level gormLogger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), Config(level))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Config is the gorm configuration shared by every dialect. TranslateError maps
// driver unique violations to gorm.ErrDuplicatedKey.
func Config(level gormLogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             1 * time.Second,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
