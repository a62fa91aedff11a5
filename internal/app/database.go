package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/fixture-calendar-sync/internal/config"
	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/repository/postgres"
)

const maxTracedQueryLength = 512

// openDatabase connects to Postgres through otelsqlx so every query is a span.
func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	opts := []otelsql.Option{
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := postgres.DatabaseName(cfg.DBURL); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	db, err := otelsqlx.Open("postgres", postgres.NormalizeDSN(cfg.DBURL, cfg.DBDisablePreparedBinary), opts...)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// formatDBQueryForTrace collapses the multi-line builder output into one line
// and caps it so large IN lists don't bloat spans.
func formatDBQueryForTrace(query string) string {
	formatted := strings.Join(strings.Fields(query), " ")
	if len(formatted) <= maxTracedQueryLength {
		return formatted
	}
	return formatted[:maxTracedQueryLength] + "..."
}
