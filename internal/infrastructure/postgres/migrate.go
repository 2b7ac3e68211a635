package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationResult versión aplicada por Migrate.
type MigrationResult struct {
	Version int64  `json:"version"`
	Path    string `json:"path"`
}

// MigrationReport migraciones aplicadas y versión del esquema tras aplicarlas.
type MigrationReport struct {
	Applied []MigrationResult `json:"applied"`
	Version int64             `json:"version"`
}

// Migrate aplica las migraciones pendientes del esquema de cartera.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (MigrationReport, error) {
	provider, err := newMigrationProvider(pool)
	if err != nil {
		return MigrationReport{}, err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("apply migrations: %w", err)
	}
	report := MigrationReport{Applied: make([]MigrationResult, 0, len(results))}
	for _, res := range results {
		report.Applied = append(report.Applied, MigrationResult{Version: res.Source.Version, Path: res.Source.Path})
	}
	report.Version, err = provider.GetDBVersion(ctx)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("schema version: %w", err)
	}
	return report, nil
}

func newMigrationProvider(pool *pgxpool.Pool) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}
