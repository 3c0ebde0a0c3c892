/*
Package sqlite provides a SQLite-backed implementation of the leave Store.

PURPOSE:
  Durable storage for leave requests and balance records. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  leave_requests: One row per request, status and approval trail included.
                  Rows are upserted per transition, never deleted.
  leave_balances: One row per (employee, leave type, accounting year).

ATOMIC TRANSITIONS:
  ApplyTransition writes the request row and the balance row inside one
  SQL transaction, so a crash between the two writes can never leave a
  reservation without its request or vice versa.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  svc := leave.NewService(st, notifier, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definition
  - leave/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Leave requests (upserted per transition, never deleted)
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		manager_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		trail_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee
		ON leave_requests(employee_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);

	-- Balance records, one per (employee, leave type, accounting year)
	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		allotted TEXT NOT NULL,
		consumed TEXT NOT NULL,
		reserved TEXT NOT NULL,
		capped INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type, year)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// ApplyTransition persists the request and the optional balance atomically.
func (s *Store) ApplyTransition(ctx context.Context, req leave.Request, bal *leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	trailJSON, err := json.Marshal(req.Trail)
	if err != nil {
		return fmt.Errorf("failed to encode approval trail: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, employee_id, manager_id, leave_type, start_date, end_date,
		 reason, status, trail_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			trail_json = excluded.trail_json,
			updated_at = excluded.updated_at
	`,
		req.ID,
		req.EmployeeID,
		req.ManagerID,
		string(req.Type),
		req.Range.Start.Format("2006-01-02"),
		req.Range.End.Format("2006-01-02"),
		req.Reason,
		string(req.Status),
		string(trailJSON),
		req.CreatedAt.UTC().Format(time.RFC3339),
		req.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert request: %w", err)
	}

	if bal != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO leave_balances
			(employee_id, leave_type, year, allotted, consumed, reserved, capped, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(employee_id, leave_type, year) DO UPDATE SET
				allotted = excluded.allotted,
				consumed = excluded.consumed,
				reserved = excluded.reserved,
				capped = excluded.capped,
				updated_at = excluded.updated_at
		`,
			bal.Key.EmployeeID,
			string(bal.Key.Type),
			bal.Key.Year,
			bal.Allotted.String(),
			bal.Consumed.String(),
			bal.Reserved.String(),
			boolToInt(bal.Capped),
			time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert balance: %w", err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// READS
// =============================================================================

const requestColumns = `id, employee_id, manager_id, leave_type, start_date, end_date,
	reason, status, trail_json, created_at, updated_at`

// GetRequest returns the request with the given id, or (nil, nil) when absent.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// ListByEmployee returns all requests for an employee, newest first.
func (s *Store) ListByEmployee(ctx context.Context, employeeID string) ([]leave.Request, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE employee_id = ? ORDER BY created_at DESC`, employeeID)
}

// ListActiveRequests returns requests still occupying their date range,
// oldest first.
func (s *Store) ListActiveRequests(ctx context.Context) ([]leave.Request, error) {
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE status IN (?, ?, ?) ORDER BY created_at ASC`,
		string(leave.StatusPending),
		string(leave.StatusManagerApproved),
		string(leave.StatusHRApproved),
	)
}

// ListBalances returns every persisted balance record.
func (s *Store) ListBalances(ctx context.Context) ([]leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, leave_type, year, allotted, consumed, reserved, capped
		FROM leave_balances`)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var result []leave.Balance
	for rows.Next() {
		var (
			b                            leave.Balance
			typ                          string
			allotted, consumed, reserved string
			capped                       int
		)
		if err := rows.Scan(&b.Key.EmployeeID, &typ, &b.Key.Year,
			&allotted, &consumed, &reserved, &capped); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		b.Key.Type = leave.Type(typ)
		if b.Allotted, err = decimal.NewFromString(allotted); err != nil {
			return nil, fmt.Errorf("corrupt allotted value %q: %w", allotted, err)
		}
		if b.Consumed, err = decimal.NewFromString(consumed); err != nil {
			return nil, fmt.Errorf("corrupt consumed value %q: %w", consumed, err)
		}
		if b.Reserved, err = decimal.NewFromString(reserved); err != nil {
			return nil, fmt.Errorf("corrupt reserved value %q: %w", reserved, err)
		}
		b.Capped = capped != 0
		result = append(result, b)
	}
	return result, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var result []leave.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*leave.Request, error) {
	var (
		req                  leave.Request
		typ, status          string
		startDate, endDate   string
		trailJSON            string
		createdAt, updatedAt string
	)
	err := row.Scan(&req.ID, &req.EmployeeID, &req.ManagerID, &typ,
		&startDate, &endDate, &req.Reason, &status, &trailJSON,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	req.Type = leave.Type(typ)
	req.Status = leave.Status(status)

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt start date %q: %w", startDate, err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt end date %q: %w", endDate, err)
	}
	req.Range, err = leave.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(trailJSON), &req.Trail); err != nil {
		return nil, fmt.Errorf("corrupt approval trail: %w", err)
	}
	if req.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
	}
	if req.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("corrupt updated_at %q: %w", updatedAt, err)
	}
	return &req, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
