package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/data-power-io/excavator-pins/internal/pins"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// WriteSQLite replaces the excavators table of the database file at path with the catalog
func WriteSQLite(ctx context.Context, path string, c *pins.Catalog, logger *zap.Logger) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer db.Close()

	table := quoteIdent(pins.EntityExcavators)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ddl := []string{
		"DROP TABLE IF EXISTS " + table,
		createTableSQL(sqliteDialect, table, false),
	}
	for _, idx := range indexes {
		ddl = append(ddl, fmt.Sprintf("CREATE INDEX idx_%s ON %s (%s)", idx.name, table, quoteIdent(idx.column)))
	}
	for _, stmt := range ddl {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(pins.Columns)), ", ")
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(quotedColumns(), ", "), placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	for i := range c.Records {
		if _, err := insert.ExecContext(ctx, rowValues(&c.Records[i])...); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("Wrote sqlite table",
		zap.String("path", path),
		zap.Int("records", c.Len()),
	)
	return nil
}
