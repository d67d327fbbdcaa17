package sqlstore

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/data-power-io/excavator-pins/internal/config"
	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Client struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	config config.PostgresConfig
}

func NewClient(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Client, error) {
	dsn := buildConnectionString(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &Client{
		pool:   pool,
		logger: logger,
		config: cfg,
	}, nil
}

func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Table returns the identifier of the configured target table
func (c *Client) Table() pgx.Identifier {
	schema := c.config.Schema
	if schema == "" {
		schema = "public"
	}
	table := c.config.Table
	if table == "" {
		table = pins.EntityExcavators
	}
	return pgx.Identifier{schema, table}
}

// WriteCatalog creates the target table if absent, truncates it and COPYs the catalog in.
// It returns the number of rows copied.
func (c *Client) WriteCatalog(ctx context.Context, catalog *pins.Catalog) (int64, error) {
	target := c.Table()
	table := target.Sanitize()

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ddl := []string{createTableSQL(postgresDialect, table, true)}
	for _, idx := range indexes {
		name := pgx.Identifier{fmt.Sprintf("idx_%s_%s", target[1], idx.name)}.Sanitize()
		ddl = append(ddl, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, table, quoteIdent(idx.column)))
	}
	ddl = append(ddl, "TRUNCATE TABLE "+table)

	for _, stmt := range ddl {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to prepare table %s: %w", table, err)
		}
	}

	rows := make([][]interface{}, len(catalog.Records))
	for i := range catalog.Records {
		rows[i] = rowValues(&catalog.Records[i])
	}

	copied, err := tx.CopyFrom(ctx, target, pins.ColumnNames(), pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.logger.Info("Loaded postgres table",
		zap.String("table", table),
		zap.Int64("records", copied),
	)
	return copied, nil
}

func buildConnectionString(cfg config.PostgresConfig) string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}

	query := url.Values{}
	if cfg.SSLMode != "" {
		query.Set("sslmode", cfg.SSLMode)
	}
	if cfg.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	// statement_timeout is a server setting in milliseconds
	if cfg.StatementTimeout > 0 {
		query.Set("statement_timeout", strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10))
	}

	dsn.RawQuery = query.Encode()
	return dsn.String()
}
