package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"arbTimeline/internal/domain"
	"arbTimeline/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.OpportunityRepository and ports.PriceRepository using SQLite.
// Timestamps are stored as unix milliseconds.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (and if needed creates) the database and its schema.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository: %w", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/arbitrage.db"
	}
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(ctx, err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(ctx, err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(ctx, err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection keeps writers serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(ctx); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(ctx, err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(ctx, "SQLite database ready", ports.Fields{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS opportunities (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		direction TEXT NOT NULL,
		dex_price REAL NOT NULL,
		cex_price REAL NOT NULL,
		spread_percent REAL NOT NULL,
		profit REAL NOT NULL,
		profit_rate REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_points (
		source TEXT NOT NULL,
		ts INTEGER NOT NULL,
		open REAL NOT NULL DEFAULT 0,
		high REAL NOT NULL DEFAULT 0,
		low REAL NOT NULL DEFAULT 0,
		close REAL NOT NULL,
		volume REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (source, ts)
	);
	CREATE INDEX IF NOT EXISTS idx_opportunities_ts ON opportunities (ts);
	CREATE INDEX IF NOT EXISTS idx_opportunities_rate ON opportunities (profit_rate);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return r.migratePriceColumns(ctx)
}

// migratePriceColumns upgrades a price_points table created before candles
// were stored, when it only held a close price in a "price" column.
func (r *Repository) migratePriceColumns(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('price_points')`)
	if err != nil {
		return fmt.Errorf("failed to inspect price_points: %w", err)
	}
	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to inspect price_points: %w", err)
		}
		cols[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to inspect price_points: %w", err)
	}

	var stmts []string
	if cols["price"] && !cols["close"] {
		stmts = append(stmts, `ALTER TABLE price_points RENAME COLUMN price TO close`)
	}
	for _, col := range []string{"open", "high", "low"} {
		if !cols[col] {
			stmts = append(stmts, fmt.Sprintf(`ALTER TABLE price_points ADD COLUMN %s REAL NOT NULL DEFAULT 0`, col))
		}
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate price_points: %w", err)
		}
	}
	if len(stmts) > 0 {
		r.logger.Info(ctx, "Migrated price_points to candle columns", ports.Fields{"statements": len(stmts)})
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Debug(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- OpportunityRepository Implementation ---

const upsertOpportunity = `
	INSERT OR REPLACE INTO opportunities
		(id, ts, direction, dex_price, cex_price, spread_percent, profit, profit_rate)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const selectOpportunity = `
	SELECT id, ts, direction, dex_price, cex_price, spread_percent, profit, profit_rate
	FROM opportunities`

// Save inserts or replaces a single opportunity.
func (r *Repository) Save(ctx context.Context, opp *domain.Opportunity) error {
	if opp == nil || opp.ID == "" {
		return fmt.Errorf("opportunity without id: %w", ports.ErrInvalidRequest)
	}
	_, err := r.db.ExecContext(ctx, upsertOpportunity, opportunityArgs(opp)...)
	if err != nil {
		return fmt.Errorf("failed to save opportunity %s: %w: %w", opp.ID, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Opportunity saved", ports.Fields{"id": opp.ID})
	return nil
}

// SaveBatch stores opportunities in a single transaction.
func (r *Repository) SaveBatch(ctx context.Context, opps []*domain.Opportunity) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertOpportunity)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare opportunity insert: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer stmt.Close()

	written := 0
	for _, o := range opps {
		if o == nil || o.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, opportunityArgs(o)...); err != nil {
			return 0, fmt.Errorf("failed to save opportunity %s: %w: %w", o.ID, ports.ErrUpdateFailed, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit opportunities: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Info(ctx, "Opportunities saved", ports.Fields{"count": written})
	return written, nil
}

// FindOpportunities returns matching opportunities ordered by timestamp.
func (r *Repository) FindOpportunities(ctx context.Context, filter domain.Filter) ([]*domain.Opportunity, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.MinProfitRate != nil {
		conds = append(conds, "profit_rate >= ?")
		args = append(args, *filter.MinProfitRate)
	}
	if !filter.Start.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, filter.Start.UnixMilli())
	}
	if !filter.End.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, filter.End.UnixMilli())
	}
	query := selectOpportunity
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	opps := make([]*domain.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w: %w", ports.ErrQueryFailed, err)
		}
		opps = append(opps, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunity rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return opps, nil
}

// FindByID retrieves an opportunity by ID. Returns nil, nil if not found.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	row := r.db.QueryRowContext(ctx, selectOpportunity+" WHERE id = ?", id)
	o, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query opportunity %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return o, nil
}

// Count returns the number of stored opportunities.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w: %w", ports.ErrQueryFailed, err)
	}
	return n, nil
}

// --- PriceRepository Implementation ---

// SavePrices inserts points that are not stored yet.
func (r *Repository) SavePrices(ctx context.Context, points []domain.PricePoint) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO price_points (source, ts, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare price insert: %w: %w", ports.ErrUpdateFailed, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range points {
		res, err := stmt.ExecContext(ctx, string(p.Source), p.Timestamp.UnixMilli(), p.Open, p.High, p.Low, p.Close, p.Volume)
		if err != nil {
			return 0, fmt.Errorf("failed to save price point: %w: %w", ports.ErrUpdateFailed, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit price points: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Price points saved", ports.Fields{"received": len(points), "inserted": inserted})
	return inserted, nil
}

// FindPrices returns the points of source within [start, end].
func (r *Repository) FindPrices(ctx context.Context, source domain.PriceSource, start, end time.Time) ([]domain.PricePoint, error) {
	query := `SELECT ts, open, high, low, close, volume FROM price_points WHERE source = ?`
	args := []interface{}{string(source)}
	if !start.IsZero() {
		query += " AND ts >= ?"
		args = append(args, start.UnixMilli())
	}
	if !end.IsZero() {
		query += " AND ts <= ?"
		args = append(args, end.UnixMilli())
	}
	query += " ORDER BY ts ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s prices: %w: %w", source, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	points := make([]domain.PricePoint, 0)
	for rows.Next() {
		var ms int64
		p := domain.PricePoint{Source: source}
		if err := rows.Scan(&ms, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w: %w", ports.ErrQueryFailed, err)
		}
		p.Timestamp = time.UnixMilli(ms).UTC()
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return points, nil
}

// LatestPriceTime returns the newest stored timestamp for source.
func (r *Repository) LatestPriceTime(ctx context.Context, source domain.PriceSource) (time.Time, error) {
	var ms sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(ts) FROM price_points WHERE source = ?`, string(source)).Scan(&ms)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest %s price: %w: %w", source, ports.ErrQueryFailed, err)
	}
	if !ms.Valid {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms.Int64).UTC(), nil
}

// --- Helpers ---

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOpportunity(s scanner) (*domain.Opportunity, error) {
	o := &domain.Opportunity{}
	var ms int64
	var direction string
	err := s.Scan(&o.ID, &ms, &direction, &o.DexPrice, &o.CexPrice, &o.SpreadPercent, &o.Profit, &o.ProfitRate)
	if err != nil {
		return nil, err
	}
	o.Timestamp = time.UnixMilli(ms).UTC()
	o.Direction = domain.Direction(direction)
	return o, nil
}

func opportunityArgs(o *domain.Opportunity) []interface{} {
	return []interface{}{
		o.ID, o.Timestamp.UnixMilli(), string(o.Direction),
		o.DexPrice, o.CexPrice, o.SpreadPercent, o.Profit, o.ProfitRate,
	}
}

var (
	_ ports.OpportunityRepository = (*Repository)(nil)
	_ ports.PriceRepository       = (*Repository)(nil)
)
