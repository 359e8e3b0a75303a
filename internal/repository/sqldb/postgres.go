package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gfdmit/yatube/config"
)

var postgresDialect = dialect{
	name:   "postgres",
	dollar: true,
	uniqueViolation: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
	foreignKeyViolation: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23503"
	},
}

// NewPostgres connects to PostgreSQL and applies pending migrations.
func NewPostgres(ctx context.Context, conf config.Postgres, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", conf.DSN())
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, conf.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.WithInstance: %w", err)
	}
	if err := applyMigrations("migrations/postgres", conf.DB, driver, log); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dialect: postgresDialect}, nil
}
