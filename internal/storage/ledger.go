package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"github.com/marcboeker/go-duckdb"

	"github.com/charge-telemetry/backend/internal/models"
)

// Supported ledger drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// UserLedger accumulates carbon reduction and reward points per user.
type UserLedger interface {
	AddCarbonReduction(ctx context.Context, userID string, kg float64) (float64, error)
	AddRewardPoints(ctx context.Context, userID string, points float64) (float64, error)
	Totals(ctx context.Context, userID string) (*models.CarbonTotals, error)
	Close() error
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS user_carbon (
	user_id                   VARCHAR PRIMARY KEY,
	total_carbon_reduction_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
	carbon_reward_points      DOUBLE PRECISION NOT NULL DEFAULT 0
)`

const addCarbonSQL = `
INSERT INTO user_carbon (user_id, total_carbon_reduction_kg, carbon_reward_points)
VALUES ($1, $2, 0)
ON CONFLICT (user_id) DO UPDATE
	SET total_carbon_reduction_kg = user_carbon.total_carbon_reduction_kg + EXCLUDED.total_carbon_reduction_kg
RETURNING total_carbon_reduction_kg`

const addPointsSQL = `
INSERT INTO user_carbon (user_id, total_carbon_reduction_kg, carbon_reward_points)
VALUES ($1, 0, $2)
ON CONFLICT (user_id) DO UPDATE
	SET carbon_reward_points = user_carbon.carbon_reward_points + EXCLUDED.carbon_reward_points
RETURNING carbon_reward_points`

const totalsSQL = `
SELECT total_carbon_reduction_kg, carbon_reward_points
FROM user_carbon
WHERE user_id = $1`

// SQLLedger is a UserLedger over database/sql. The same statements run on
// DuckDB and PostgreSQL. Writes are serialized because DuckDB aborts
// concurrent updates of one row instead of waiting.
type SQLLedger struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenLedger opens a ledger for driver. For DuckDB an empty DSN is an in-memory
// database; otherwise it is a file path.
func OpenLedger(driverName, dsn string) (*SQLLedger, error) {
	var db *sql.DB

	switch driverName {
	case DriverDuckDB, "":
		connector, err := duckdb.NewConnector(dsn, func(execer driver.ExecerContext) error {
			_, err := execer.ExecContext(context.Background(), "PRAGMA threads=1", nil)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("opening duckdb ledger: %w", err)
		}
		db = sql.OpenDB(connector)
	case DriverPostgres:
		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres ledger: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %s", driverName)
	}

	ledger, err := NewSQLLedger(context.Background(), db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return ledger, nil
}

// NewSQLLedger wraps an open database and creates the schema if needed.
func NewSQLLedger(ctx context.Context, db *sql.DB) (*SQLLedger, error) {
	if _, err := db.ExecContext(ctx, ledgerSchema); err != nil {
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &SQLLedger{db: db}, nil
}

// AddCarbonReduction adds kg to the user's carbon reduction total and returns the new total.
func (l *SQLLedger) AddCarbonReduction(ctx context.Context, userID string, kg float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total float64
	if err := l.db.QueryRowContext(ctx, addCarbonSQL, userID, kg).Scan(&total); err != nil {
		return 0, fmt.Errorf("adding carbon reduction for %s: %w", userID, err)
	}
	return total, nil
}

// AddRewardPoints adds points to the user's reward total and returns the new total.
func (l *SQLLedger) AddRewardPoints(ctx context.Context, userID string, points float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total float64
	if err := l.db.QueryRowContext(ctx, addPointsSQL, userID, points).Scan(&total); err != nil {
		return 0, fmt.Errorf("adding reward points for %s: %w", userID, err)
	}
	return total, nil
}

// Totals returns the user's accumulated values. Unknown users have zero totals.
func (l *SQLLedger) Totals(ctx context.Context, userID string) (*models.CarbonTotals, error) {
	totals := &models.CarbonTotals{UserID: userID}
	err := l.db.QueryRowContext(ctx, totalsSQL, userID).
		Scan(&totals.TotalCarbonReductionKg, &totals.CarbonRewardPoints)
	if err == sql.ErrNoRows {
		return totals, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading totals for %s: %w", userID, err)
	}
	return totals, nil
}

// Close releases the database.
func (l *SQLLedger) Close() error {
	return l.db.Close()
}
