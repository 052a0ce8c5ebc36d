package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New connects to Postgres, or to SQLite when DB_DRIVER=sqlite for
// local one-binary runs.
func New(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	driver := strings.ToLower(envutil.Str("DB_DRIVER", "postgres"))
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	}

	var db *gorm.DB
	var err error
	switch driver {
	case "sqlite":
		path := envutil.Str("SQLITE_PATH", "borealis.db")
		serviceLog.Info("Connecting to SQLite", "path", path)
		db, err = gorm.Open(sqlite.Open(path), cfg)
	default:
		dsn := postgresDSNFromEnv()
		serviceLog.Info("Connecting to Postgres...")
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database (%s): %w", driver, err)
	}

	if driver != "sqlite" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
		}
	}

	return &Service{db: db, log: serviceLog}, nil
}

func postgresDSNFromEnv() string {
	if dsn := envutil.Str("POSTGRES_DSN", ""); dsn != "" {
		return dsn
	}
	host := envutil.Str("POSTGRES_HOST", "localhost")
	port := envutil.Str("POSTGRES_PORT", "5432")
	user := envutil.Str("POSTGRES_USER", "postgres")
	password := envutil.Str("POSTGRES_PASSWORD", "")
	name := envutil.Str("POSTGRES_NAME", "borealis")
	sslmode := envutil.Str("POSTGRES_SSLMODE", "disable")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	return AutoMigrateAll(s.db)
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// identity + auth
		&types.Account{},
		&types.AccountToken{},

		// public program
		&types.Speaker{},
		&types.Session{},

		// ticketing + checkout
		&types.TicketType{},
		&types.Cart{},
		&types.CartItem{},
		&types.CartAttendee{},
		&types.Order{},
		&types.Ticket{},

		// discounts
		&types.Coupon{},
		&types.Voucher{},

		// call for papers
		&types.Submission{},
		&types.Review{},

		// mail + analytics
		&types.EmailOutbox{},
		&types.AnalyticsEvent{},
	)
}
