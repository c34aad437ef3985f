/*
Package sqlite provides a SQLite-backed implementation of domain.TxStore.

PURPOSE:
  Persists staff, car washes, shifts, transferred cars, adjustments and the
  bonus settings row. The rule packages only see domain.Store; everything
  SQL-shaped stays in this file.

KEY TABLES:
  staff, car_washes:      reference data (car wash services as JSON)
  shifts:                 one row per planned shift, state in timestamp columns
  shift_finish_photos:    photos reported when closing a shift
  transferred_cars:       cars with their snapshotted prices
  penalties, surcharges:  staff adjustments
  car_wash_penalties,
  car_wash_surcharges:    car wash adjustments
  bonus_settings:         singleton row, id = 1
  sheet_sync_runs:        history of spreadsheet exports

INDEXES:
  - idx_shifts_staff_date: UNIQUE (staff_id, date) WHERE is_test = 0,
    the one-regular-shift-per-day rule
  - idx_cars_shift: car lookups per shift (hot path for summaries)

STORAGE FORMATS:
  Dates are TEXT "YYYY-MM-DD", timestamps TEXT RFC3339 in UTC with
  fixed-width nanoseconds, money TEXT decimal strings. Dates and timestamps
  sort lexically in chronological order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction and hands the callback a tx-bound view that skips it.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers don't block the
  single writer.

USAGE:
  store, err := sqlite.New("./data/carwash.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - domain/store.go: Interface definitions
  - domain/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/carwash-backoffice/domain"
)

// querier is the part of *sql.DB and *sql.Tx the store needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.TxStore using SQLite.
type Store struct {
	db   *sql.DB
	q    querier
	mu   *sync.RWMutex
	inTx bool
}

var _ domain.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and matches
	// SQLite's single writer.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, q: db, mu: &sync.RWMutex{}}
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
	CREATE TABLE IF NOT EXISTS staff (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_name TEXT NOT NULL,
		telegram_chat_id INTEGER NOT NULL DEFAULT 0,
		banned_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS car_washes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		comfort_wash_price TEXT NOT NULL,
		business_wash_price TEXT NOT NULL,
		van_wash_price TEXT NOT NULL,
		windshield_washer_price_per_bottle TEXT NOT NULL,
		services_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shifts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		staff_id INTEGER NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		car_wash_id INTEGER REFERENCES car_washes(id),
		started_at TEXT,
		finished_at TEXT,
		confirmed_at TEXT,
		rejected_at TEXT,
		is_extra INTEGER NOT NULL DEFAULT 0,
		is_test INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- One regular shift per staff member and day; test shifts are exempt
	CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_staff_date
		ON shifts(staff_id, date) WHERE is_test = 0;

	CREATE INDEX IF NOT EXISTS idx_shifts_date ON shifts(date);

	CREATE TABLE IF NOT EXISTS shift_finish_photos (
		shift_id INTEGER NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
		file_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transferred_cars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		shift_id INTEGER NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
		car_wash_id INTEGER NOT NULL REFERENCES car_washes(id),
		number TEXT NOT NULL,
		class TEXT NOT NULL,
		wash_type TEXT NOT NULL,
		windshield_washer_refilled_percentage INTEGER NOT NULL DEFAULT 0,
		transfer_price TEXT NOT NULL,
		comfort_wash_price TEXT NOT NULL,
		business_wash_price TEXT NOT NULL,
		van_wash_price TEXT NOT NULL,
		windshield_washer_price TEXT NOT NULL,
		additional_services_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cars_shift ON transferred_cars(shift_id);
	CREATE INDEX IF NOT EXISTS idx_cars_car_wash ON transferred_cars(car_wash_id);

	CREATE TABLE IF NOT EXISTS penalties (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		staff_id INTEGER NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
		reason TEXT NOT NULL,
		amount TEXT NOT NULL,
		consequence TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_penalties_staff ON penalties(staff_id, reason);

	CREATE TABLE IF NOT EXISTS surcharges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		staff_id INTEGER NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
		reason TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS car_wash_penalties (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		car_wash_id INTEGER NOT NULL REFERENCES car_washes(id) ON DELETE CASCADE,
		reason TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS car_wash_surcharges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		car_wash_id INTEGER NOT NULL REFERENCES car_washes(id) ON DELETE CASCADE,
		reason TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bonus_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		min_cars_count INTEGER NOT NULL DEFAULT 0,
		bonus_amount TEXT NOT NULL DEFAULT '0',
		excluded_staff_ids_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS sheet_sync_runs (
		id TEXT PRIMARY KEY,
		period TEXT NOT NULL,
		status TEXT NOT NULL,
		rows_written INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sheet_sync_runs_period ON sheet_sync_runs(period, started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// WithTx executes fn within a database transaction.
// Nested calls run inside the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &Store{db: s.db, q: sqlTx, mu: s.mu, inTx: true}
	if err := fn(view); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// atomic runs fn on a transaction, reusing the current one when the store
// is already a tx view. The caller must hold the write lock.
func (s *Store) atomic(ctx context.Context, fn func(q querier) error) error {
	if s.inTx {
		return fn(s.q)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// STAFF
// =============================================================================

const staffColumns = `id, full_name, telegram_chat_id, banned_at, created_at`

func (s *Store) CreateStaff(ctx context.Context, st domain.Staff) (domain.Staff, error) {
	defer s.lock()()

	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO staff (full_name, telegram_chat_id, banned_at, created_at)
		VALUES (?, ?, ?, ?)
	`, st.FullName, st.TelegramChatID, formatTimePtr(st.BannedAt), formatTime(st.CreatedAt))
	if err != nil {
		return domain.Staff{}, fmt.Errorf("failed to create staff: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Staff{}, err
	}
	st.ID = domain.StaffID(id)
	return st, nil
}

func (s *Store) GetStaff(ctx context.Context, id domain.StaffID) (domain.Staff, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = ?`, id)
	st, err := scanStaff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Staff{}, domain.ErrStaffNotFound
	}
	return st, err
}

func (s *Store) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

func (s *Store) ExistingStaffIDs(ctx context.Context, ids []domain.StaffID) ([]domain.StaffID, error) {
	defer s.rlock()()

	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.q.QueryContext(ctx, `SELECT id FROM staff WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[domain.StaffID]bool)
	for rows.Next() {
		var id domain.StaffID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Keep the caller's order.
	var result []domain.StaffID
	for _, id := range ids {
		if found[id] {
			result = append(result, id)
			delete(found, id)
		}
	}
	return result, nil
}

func (s *Store) BanStaff(ctx context.Context, id domain.StaffID, at time.Time) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `UPDATE staff SET banned_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to ban staff: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrStaffNotFound
	}
	return nil
}

func scanStaff(row scanner) (domain.Staff, error) {
	var st domain.Staff
	var bannedAt sql.NullString
	var createdAt string
	if err := row.Scan(&st.ID, &st.FullName, &st.TelegramChatID, &bannedAt, &createdAt); err != nil {
		return domain.Staff{}, err
	}
	st.BannedAt = parseTimePtr(bannedAt)
	st.CreatedAt = parseTime(createdAt)
	return st, nil
}

// =============================================================================
// CAR WASHES
// =============================================================================

type serviceJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Price decimal.Decimal `json:"price"`
}

const carWashColumns = `id, name, comfort_wash_price, business_wash_price, van_wash_price,
	windshield_washer_price_per_bottle, services_json, created_at`

func (s *Store) CreateCarWash(ctx context.Context, cw domain.CarWash) (domain.CarWash, error) {
	defer s.lock()()

	if cw.CreatedAt.IsZero() {
		cw.CreatedAt = time.Now().UTC()
	}
	services := make([]serviceJSON, len(cw.Services))
	for i, svc := range cw.Services {
		services[i] = serviceJSON{ID: svc.ID, Name: svc.Name, Kind: string(svc.Kind), Price: svc.Price}
	}
	servicesJSON, err := json.Marshal(services)
	if err != nil {
		return domain.CarWash{}, err
	}

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO car_washes (name, comfort_wash_price, business_wash_price, van_wash_price,
			windshield_washer_price_per_bottle, services_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		cw.Name,
		cw.ComfortWashPrice.String(),
		cw.BusinessWashPrice.String(),
		cw.VanWashPrice.String(),
		cw.WindshieldWasherPricePerBottle.String(),
		string(servicesJSON),
		formatTime(cw.CreatedAt),
	)
	if err != nil {
		return domain.CarWash{}, fmt.Errorf("failed to create car wash: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.CarWash{}, err
	}
	cw.ID = domain.CarWashID(id)
	cw.Services = append([]domain.CarWashService(nil), cw.Services...)
	return cw, nil
}

func (s *Store) GetCarWash(ctx context.Context, id domain.CarWashID) (domain.CarWash, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+carWashColumns+` FROM car_washes WHERE id = ?`, id)
	cw, err := scanCarWash(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CarWash{}, domain.ErrCarWashNotFound
	}
	return cw, err
}

func (s *Store) ListCarWashes(ctx context.Context) ([]domain.CarWash, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `SELECT `+carWashColumns+` FROM car_washes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CarWash
	for rows.Next() {
		cw, err := scanCarWash(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cw)
	}
	return result, rows.Err()
}

func scanCarWash(row scanner) (domain.CarWash, error) {
	var cw domain.CarWash
	var comfort, business, van, washer, servicesJSON, createdAt string
	if err := row.Scan(&cw.ID, &cw.Name, &comfort, &business, &van, &washer, &servicesJSON, &createdAt); err != nil {
		return domain.CarWash{}, err
	}
	cw.ComfortWashPrice = parseAmount(comfort)
	cw.BusinessWashPrice = parseAmount(business)
	cw.VanWashPrice = parseAmount(van)
	cw.WindshieldWasherPricePerBottle = parseAmount(washer)
	cw.CreatedAt = parseTime(createdAt)

	var services []serviceJSON
	if err := json.Unmarshal([]byte(servicesJSON), &services); err != nil {
		return domain.CarWash{}, fmt.Errorf("car wash %d services: %w", cw.ID, err)
	}
	for _, svc := range services {
		cw.Services = append(cw.Services, domain.CarWashService{
			ID:    svc.ID,
			Name:  svc.Name,
			Kind:  domain.ServiceKind(svc.Kind),
			Price: svc.Price,
		})
	}
	return cw, nil
}

// =============================================================================
// SHIFTS
// =============================================================================

const shiftColumns = `id, staff_id, date, car_wash_id, started_at, finished_at,
	confirmed_at, rejected_at, is_extra, is_test, created_at`

// shiftWhere renders f as a WHERE clause over the shifts table.
func shiftWhere(f domain.ShiftFilter) (string, []any) {
	var w where
	if f.ID != nil {
		w.add("id = ?", *f.ID)
	}
	if f.ExcludeID != nil {
		w.add("id != ?", *f.ExcludeID)
	}
	if f.StaffID != nil {
		w.add("staff_id = ?", *f.StaffID)
	}
	if f.Dates != nil {
		if len(f.Dates) == 0 {
			w.add("0")
		} else {
			args := make([]any, len(f.Dates))
			for i, d := range f.Dates {
				args[i] = d.String()
			}
			w.add("date IN ("+placeholders(len(f.Dates))+")", args...)
		}
	}
	if f.DateFrom != nil {
		w.add("date >= ?", f.DateFrom.String())
	}
	if f.DateTo != nil {
		w.add("date <= ?", f.DateTo.String())
	}
	if f.IsTest != nil {
		w.add("is_test = ?", *f.IsTest)
	}
	if f.IsExtra != nil {
		w.add("is_extra = ?", *f.IsExtra)
	}
	w.addNull("started_at", f.Started)
	w.addNull("finished_at", f.Finished)
	w.addNull("rejected_at", f.Rejected)
	w.addNull("confirmed_at", f.Confirmed)
	return w.sql(), w.args
}

func (s *Store) GetShift(ctx context.Context, id domain.ShiftID) (domain.Shift, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id)
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Shift{}, domain.ErrShiftNotFound
	}
	return sh, err
}

func (s *Store) FindShifts(ctx context.Context, f domain.ShiftFilter) ([]domain.Shift, error) {
	defer s.rlock()()

	cond, args := shiftWhere(f)
	rows, err := s.q.QueryContext(ctx, `SELECT `+shiftColumns+` FROM shifts`+cond+` ORDER BY date, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sh)
	}
	return result, rows.Err()
}

func (s *Store) CountShifts(ctx context.Context, f domain.ShiftFilter) (int, error) {
	defer s.rlock()()

	cond, args := shiftWhere(f)
	var count int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM shifts`+cond, args...).Scan(&count)
	return count, err
}

func (s *Store) ShiftExists(ctx context.Context, f domain.ShiftFilter) (bool, error) {
	defer s.rlock()()

	cond, args := shiftWhere(f)
	var exists bool
	err := s.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM shifts`+cond+`)`, args...).Scan(&exists)
	return exists, err
}

// CreateShifts inserts all shifts atomically. A violation of
// idx_shifts_staff_date becomes *domain.ShiftAlreadyExistsError.
func (s *Store) CreateShifts(ctx context.Context, shifts []domain.Shift) ([]domain.Shift, error) {
	defer s.lock()()

	created := make([]domain.Shift, len(shifts))
	err := s.atomic(ctx, func(q querier) error {
		for i, sh := range shifts {
			if sh.CreatedAt.IsZero() {
				sh.CreatedAt = time.Now().UTC()
			}
			res, err := q.ExecContext(ctx, `
				INSERT INTO shifts (staff_id, date, car_wash_id, started_at, finished_at,
					confirmed_at, rejected_at, is_extra, is_test, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				sh.StaffID,
				sh.Date.String(),
				sh.CarWashID,
				formatTimePtr(sh.StartedAt),
				formatTimePtr(sh.FinishedAt),
				formatTimePtr(sh.ConfirmedAt),
				formatTimePtr(sh.RejectedAt),
				sh.IsExtra,
				sh.IsTest,
				formatTime(sh.CreatedAt),
			)
			if err != nil {
				if isUniqueConstraintError(err) {
					return &domain.ShiftAlreadyExistsError{StaffID: sh.StaffID, Dates: []domain.Date{sh.Date}}
				}
				if isForeignKeyError(err) {
					return domain.ErrStaffNotFound
				}
				return fmt.Errorf("failed to create shift: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			sh.ID = domain.ShiftID(id)
			created[i] = sh
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateShifts(ctx context.Context, f domain.ShiftFilter, u domain.ShiftUpdate) (int, error) {
	defer s.lock()()

	var sets []string
	var args []any
	if u.CarWashID != nil {
		sets = append(sets, "car_wash_id = ?")
		args = append(args, *u.CarWashID)
	}
	for _, col := range []struct {
		name string
		at   *time.Time
	}{
		{"started_at", u.StartedAt},
		{"finished_at", u.FinishedAt},
		{"confirmed_at", u.ConfirmedAt},
		{"rejected_at", u.RejectedAt},
	} {
		if col.at != nil {
			sets = append(sets, col.name+" = ?")
			args = append(args, formatTime(*col.at))
		}
	}

	cond, condArgs := shiftWhere(f)
	if len(sets) == 0 {
		var count int
		err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM shifts`+cond, condArgs...).Scan(&count)
		return count, err
	}

	res, err := s.q.ExecContext(ctx, `UPDATE shifts SET `+strings.Join(sets, ", ")+cond, append(args, condArgs...)...)
	if err != nil {
		if isForeignKeyError(err) {
			return 0, domain.ErrCarWashNotFound
		}
		return 0, fmt.Errorf("failed to update shifts: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteShifts removes matching shifts. Photos and cars go with them
// through ON DELETE CASCADE.
func (s *Store) DeleteShifts(ctx context.Context, f domain.ShiftFilter) (int, error) {
	defer s.lock()()

	cond, args := shiftWhere(f)
	res, err := s.q.ExecContext(ctx, `DELETE FROM shifts`+cond, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete shifts: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) DeleteFinishPhotos(ctx context.Context, shiftID domain.ShiftID) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `DELETE FROM shift_finish_photos WHERE shift_id = ?`, shiftID)
	return err
}

func (s *Store) CreateFinishPhotos(ctx context.Context, photos []domain.ShiftFinishPhoto) error {
	defer s.lock()()

	return s.atomic(ctx, func(q querier) error {
		for _, p := range photos {
			_, err := q.ExecContext(ctx, `INSERT INTO shift_finish_photos (shift_id, file_id) VALUES (?, ?)`, p.ShiftID, p.FileID)
			if err != nil {
				if isForeignKeyError(err) {
					return domain.ErrShiftNotFound
				}
				return fmt.Errorf("failed to create finish photo: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) ListFinishPhotos(ctx context.Context, shiftID domain.ShiftID) ([]domain.ShiftFinishPhoto, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `SELECT shift_id, file_id FROM shift_finish_photos WHERE shift_id = ? ORDER BY rowid`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ShiftFinishPhoto
	for rows.Next() {
		var p domain.ShiftFinishPhoto
		if err := rows.Scan(&p.ShiftID, &p.FileID); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanShift(row scanner) (domain.Shift, error) {
	var sh domain.Shift
	var date, createdAt string
	var carWashID sql.NullInt64
	var startedAt, finishedAt, confirmedAt, rejectedAt sql.NullString
	if err := row.Scan(
		&sh.ID, &sh.StaffID, &date, &carWashID, &startedAt, &finishedAt,
		&confirmedAt, &rejectedAt, &sh.IsExtra, &sh.IsTest, &createdAt,
	); err != nil {
		return domain.Shift{}, err
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return domain.Shift{}, fmt.Errorf("shift %d: %w", sh.ID, err)
	}
	sh.Date = d
	if carWashID.Valid {
		sh.CarWashID = domain.Ptr(domain.CarWashID(carWashID.Int64))
	}
	sh.StartedAt = parseTimePtr(startedAt)
	sh.FinishedAt = parseTimePtr(finishedAt)
	sh.ConfirmedAt = parseTimePtr(confirmedAt)
	sh.RejectedAt = parseTimePtr(rejectedAt)
	sh.CreatedAt = parseTime(createdAt)
	return sh, nil
}

// =============================================================================
// TRANSFERRED CARS
// =============================================================================

type additionalServiceJSON struct {
	ServiceID string          `json:"service_id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Count     int             `json:"count"`
	Price     decimal.Decimal `json:"price"`
}

const carColumns = `c.id, c.shift_id, c.car_wash_id, c.number, c.class, c.wash_type,
	c.windshield_washer_refilled_percentage, c.transfer_price, c.comfort_wash_price,
	c.business_wash_price, c.van_wash_price, c.windshield_washer_price,
	c.additional_services_json, c.created_at`

// carWhere renders f over transferred_cars c joined with shifts s.
func carWhere(f domain.CarFilter) (string, []any) {
	var w where
	if f.ShiftID != nil {
		w.add("c.shift_id = ?", *f.ShiftID)
	}
	if f.CarWashID != nil {
		w.add("c.car_wash_id = ?", *f.CarWashID)
	}
	if f.StaffID != nil {
		w.add("s.staff_id = ?", *f.StaffID)
	}
	if f.ShiftDateFrom != nil {
		w.add("s.date >= ?", f.ShiftDateFrom.String())
	}
	if f.ShiftDateTo != nil {
		w.add("s.date <= ?", f.ShiftDateTo.String())
	}
	if f.ShiftIsTest != nil {
		w.add("s.is_test = ?", *f.ShiftIsTest)
	}
	return w.sql(), w.args
}

func (s *Store) CreateTransferredCar(ctx context.Context, car domain.TransferredCar) (domain.TransferredCar, error) {
	defer s.lock()()

	if car.CreatedAt.IsZero() {
		car.CreatedAt = time.Now().UTC()
	}
	services := make([]additionalServiceJSON, len(car.AdditionalServices))
	for i, svc := range car.AdditionalServices {
		services[i] = additionalServiceJSON{
			ServiceID: svc.ServiceID,
			Name:      svc.Name,
			Kind:      string(svc.Kind),
			Count:     svc.Count,
			Price:     svc.Price,
		}
	}
	servicesJSON, err := json.Marshal(services)
	if err != nil {
		return domain.TransferredCar{}, err
	}

	var exists bool
	if err := s.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM shifts WHERE id = ?)`, car.ShiftID).Scan(&exists); err != nil {
		return domain.TransferredCar{}, err
	}
	if !exists {
		return domain.TransferredCar{}, domain.ErrShiftNotFound
	}

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO transferred_cars (shift_id, car_wash_id, number, class, wash_type,
			windshield_washer_refilled_percentage, transfer_price, comfort_wash_price,
			business_wash_price, van_wash_price, windshield_washer_price,
			additional_services_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		car.ShiftID,
		car.CarWashID,
		car.Number,
		string(car.Class),
		string(car.WashType),
		car.WindshieldWasherRefilledPercentage,
		car.Prices.Transfer.String(),
		car.Prices.ComfortWash.String(),
		car.Prices.BusinessWash.String(),
		car.Prices.VanWash.String(),
		car.Prices.WindshieldWasher.String(),
		string(servicesJSON),
		formatTime(car.CreatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return domain.TransferredCar{}, domain.ErrCarWashNotFound
		}
		return domain.TransferredCar{}, fmt.Errorf("failed to create transferred car: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.TransferredCar{}, err
	}
	car.ID = domain.CarID(id)
	car.AdditionalServices = append([]domain.AdditionalService(nil), car.AdditionalServices...)
	return car, nil
}

func (s *Store) FindTransferredCars(ctx context.Context, f domain.CarFilter) ([]domain.TransferredCar, error) {
	defer s.rlock()()

	cond, args := carWhere(f)
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+carColumns+`
		FROM transferred_cars c JOIN shifts s ON s.id = c.shift_id`+cond+`
		ORDER BY c.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TransferredCar
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, car)
	}
	return result, rows.Err()
}

func (s *Store) CountTransferredCars(ctx context.Context, f domain.CarFilter) (int, error) {
	defer s.rlock()()

	cond, args := carWhere(f)
	var count int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transferred_cars c JOIN shifts s ON s.id = c.shift_id`+cond, args...).Scan(&count)
	return count, err
}

func scanCar(row scanner) (domain.TransferredCar, error) {
	var c domain.TransferredCar
	var class, washType, transfer, comfort, business, van, washer, servicesJSON, createdAt string
	if err := row.Scan(
		&c.ID, &c.ShiftID, &c.CarWashID, &c.Number, &class, &washType,
		&c.WindshieldWasherRefilledPercentage, &transfer, &comfort,
		&business, &van, &washer, &servicesJSON, &createdAt,
	); err != nil {
		return domain.TransferredCar{}, err
	}
	c.Class = domain.CarClass(class)
	c.WashType = domain.WashType(washType)
	c.Prices = domain.PriceSnapshot{
		Transfer:         parseAmount(transfer),
		ComfortWash:      parseAmount(comfort),
		BusinessWash:     parseAmount(business),
		VanWash:          parseAmount(van),
		WindshieldWasher: parseAmount(washer),
	}
	c.CreatedAt = parseTime(createdAt)

	var services []additionalServiceJSON
	if err := json.Unmarshal([]byte(servicesJSON), &services); err != nil {
		return domain.TransferredCar{}, fmt.Errorf("car %d services: %w", c.ID, err)
	}
	for _, svc := range services {
		c.AdditionalServices = append(c.AdditionalServices, domain.AdditionalService{
			ServiceID: svc.ServiceID,
			Name:      svc.Name,
			Kind:      domain.ServiceKind(svc.Kind),
			Count:     svc.Count,
			Price:     svc.Price,
		})
	}
	return c, nil
}

// =============================================================================
// PENALTIES / SURCHARGES
// =============================================================================

// adjustmentWhere renders f for one of the four adjustment tables. Callers
// short-circuit filters on an owner column their table does not have.
func adjustmentWhere(f domain.AdjustmentFilter) (string, []any) {
	var w where
	if f.StaffID != nil {
		w.add("staff_id = ?", *f.StaffID)
	}
	if f.CarWashID != nil {
		w.add("car_wash_id = ?", *f.CarWashID)
	}
	if f.Reason != nil {
		w.add("reason = ?", *f.Reason)
	}
	// created_at is stored in UTC, its first ten characters are the UTC day.
	if f.CreatedFrom != nil {
		w.add("substr(created_at, 1, 10) >= ?", f.CreatedFrom.String())
	}
	if f.CreatedTo != nil {
		w.add("substr(created_at, 1, 10) <= ?", f.CreatedTo.String())
	}
	return w.sql(), w.args
}

// insertAdjustment inserts one row and maps a missing owner to notFound.
func (s *Store) insertAdjustment(ctx context.Context, query string, notFound error, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyError(err) {
			return 0, notFound
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) CreatePenalty(ctx context.Context, p domain.Penalty) (domain.Penalty, error) {
	defer s.lock()()

	p.CreatedAt = stamp(p.CreatedAt)
	id, err := s.insertAdjustment(ctx, `
		INSERT INTO penalties (staff_id, reason, amount, consequence, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, domain.ErrStaffNotFound,
		p.StaffID, string(p.Reason), p.Amount.String(), string(p.Consequence), formatTime(p.CreatedAt))
	if err != nil {
		return domain.Penalty{}, err
	}
	p.ID = domain.PenaltyID(id)
	return p, nil
}

func (s *Store) FindPenalties(ctx context.Context, f domain.AdjustmentFilter) ([]domain.Penalty, error) {
	defer s.rlock()()

	if f.CarWashID != nil {
		return nil, nil
	}
	cond, args := adjustmentWhere(f)
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, staff_id, reason, amount, consequence, created_at
		FROM penalties`+cond+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Penalty
	for rows.Next() {
		var p domain.Penalty
		var reason, amount, consequence, createdAt string
		if err := rows.Scan(&p.ID, &p.StaffID, &reason, &amount, &consequence, &createdAt); err != nil {
			return nil, err
		}
		p.Reason = domain.PenaltyReason(reason)
		p.Amount = parseAmount(amount)
		p.Consequence = domain.PenaltyConsequence(consequence)
		p.CreatedAt = parseTime(createdAt)
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) CountPenalties(ctx context.Context, f domain.AdjustmentFilter) (int, error) {
	defer s.rlock()()

	if f.CarWashID != nil {
		return 0, nil
	}
	cond, args := adjustmentWhere(f)
	var count int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM penalties`+cond, args...).Scan(&count)
	return count, err
}

func (s *Store) CreateSurcharge(ctx context.Context, sur domain.Surcharge) (domain.Surcharge, error) {
	defer s.lock()()

	sur.CreatedAt = stamp(sur.CreatedAt)
	id, err := s.insertAdjustment(ctx, `
		INSERT INTO surcharges (staff_id, reason, amount, created_at) VALUES (?, ?, ?, ?)
	`, domain.ErrStaffNotFound,
		sur.StaffID, sur.Reason, sur.Amount.String(), formatTime(sur.CreatedAt))
	if err != nil {
		return domain.Surcharge{}, err
	}
	sur.ID = domain.SurchargeID(id)
	return sur, nil
}

func (s *Store) FindSurcharges(ctx context.Context, f domain.AdjustmentFilter) ([]domain.Surcharge, error) {
	defer s.rlock()()

	if f.CarWashID != nil {
		return nil, nil
	}
	cond, args := adjustmentWhere(f)
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, staff_id, reason, amount, created_at
		FROM surcharges`+cond+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Surcharge
	for rows.Next() {
		var sur domain.Surcharge
		var amount, createdAt string
		if err := rows.Scan(&sur.ID, &sur.StaffID, &sur.Reason, &amount, &createdAt); err != nil {
			return nil, err
		}
		sur.Amount = parseAmount(amount)
		sur.CreatedAt = parseTime(createdAt)
		result = append(result, sur)
	}
	return result, rows.Err()
}

func (s *Store) CreateCarWashPenalty(ctx context.Context, p domain.CarWashPenalty) (domain.CarWashPenalty, error) {
	defer s.lock()()

	p.CreatedAt = stamp(p.CreatedAt)
	id, err := s.insertAdjustment(ctx, `
		INSERT INTO car_wash_penalties (car_wash_id, reason, amount, created_at) VALUES (?, ?, ?, ?)
	`, domain.ErrCarWashNotFound,
		p.CarWashID, p.Reason, p.Amount.String(), formatTime(p.CreatedAt))
	if err != nil {
		return domain.CarWashPenalty{}, err
	}
	p.ID = domain.PenaltyID(id)
	return p, nil
}

func (s *Store) FindCarWashPenalties(ctx context.Context, f domain.AdjustmentFilter) ([]domain.CarWashPenalty, error) {
	defer s.rlock()()

	if f.StaffID != nil {
		return nil, nil
	}
	cond, args := adjustmentWhere(f)
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, car_wash_id, reason, amount, created_at
		FROM car_wash_penalties`+cond+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CarWashPenalty
	for rows.Next() {
		var p domain.CarWashPenalty
		var amount, createdAt string
		if err := rows.Scan(&p.ID, &p.CarWashID, &p.Reason, &amount, &createdAt); err != nil {
			return nil, err
		}
		p.Amount = parseAmount(amount)
		p.CreatedAt = parseTime(createdAt)
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) CreateCarWashSurcharge(ctx context.Context, sur domain.CarWashSurcharge) (domain.CarWashSurcharge, error) {
	defer s.lock()()

	sur.CreatedAt = stamp(sur.CreatedAt)
	id, err := s.insertAdjustment(ctx, `
		INSERT INTO car_wash_surcharges (car_wash_id, reason, amount, created_at) VALUES (?, ?, ?, ?)
	`, domain.ErrCarWashNotFound,
		sur.CarWashID, sur.Reason, sur.Amount.String(), formatTime(sur.CreatedAt))
	if err != nil {
		return domain.CarWashSurcharge{}, err
	}
	sur.ID = domain.SurchargeID(id)
	return sur, nil
}

func (s *Store) FindCarWashSurcharges(ctx context.Context, f domain.AdjustmentFilter) ([]domain.CarWashSurcharge, error) {
	defer s.rlock()()

	if f.StaffID != nil {
		return nil, nil
	}
	cond, args := adjustmentWhere(f)
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, car_wash_id, reason, amount, created_at
		FROM car_wash_surcharges`+cond+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CarWashSurcharge
	for rows.Next() {
		var sur domain.CarWashSurcharge
		var amount, createdAt string
		if err := rows.Scan(&sur.ID, &sur.CarWashID, &sur.Reason, &amount, &createdAt); err != nil {
			return nil, err
		}
		sur.Amount = parseAmount(amount)
		sur.CreatedAt = parseTime(createdAt)
		result = append(result, sur)
	}
	return result, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetBonusSettings creates the default row on first access.
func (s *Store) GetBonusSettings(ctx context.Context) (domain.BonusSettings, error) {
	defer s.lock()()

	if _, err := s.q.ExecContext(ctx, `INSERT OR IGNORE INTO bonus_settings (id) VALUES (1)`); err != nil {
		return domain.BonusSettings{}, fmt.Errorf("failed to init bonus settings: %w", err)
	}

	var b domain.BonusSettings
	var amount, excluded string
	err := s.q.QueryRowContext(ctx, `
		SELECT min_cars_count, bonus_amount, excluded_staff_ids_json FROM bonus_settings WHERE id = 1
	`).Scan(&b.MinCarsCount, &amount, &excluded)
	if err != nil {
		return domain.BonusSettings{}, err
	}
	b.BonusAmount = parseAmount(amount)
	if err := json.Unmarshal([]byte(excluded), &b.ExcludedStaffIDs); err != nil {
		return domain.BonusSettings{}, fmt.Errorf("excluded staff ids: %w", err)
	}
	return b, nil
}

func (s *Store) SaveBonusSettings(ctx context.Context, b domain.BonusSettings) error {
	defer s.lock()()

	excluded := b.ExcludedStaffIDs
	if excluded == nil {
		excluded = []domain.StaffID{}
	}
	excludedJSON, err := json.Marshal(excluded)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO bonus_settings (id, min_cars_count, bonus_amount, excluded_staff_ids_json)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			min_cars_count = excluded.min_cars_count,
			bonus_amount = excluded.bonus_amount,
			excluded_staff_ids_json = excluded.excluded_staff_ids_json
	`, b.MinCarsCount, b.BonusAmount.String(), string(excludedJSON))
	if err != nil {
		return fmt.Errorf("failed to save bonus settings: %w", err)
	}
	return nil
}

// =============================================================================
// SHEET SYNC RUNS
// =============================================================================

// SyncRun records one export of a report period to the spreadsheet.
type SyncRun struct {
	ID          string
	Period      string
	Status      string // running, completed, failed
	RowsWritten int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SaveSyncRun inserts or updates a sync run by ID.
func (s *Store) SaveSyncRun(ctx context.Context, r SyncRun) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sheet_sync_runs (id, period, status, rows_written, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			rows_written = excluded.rows_written,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, r.ID, r.Period, r.Status, r.RowsWritten, r.Error, formatTime(r.StartedAt), formatTimePtr(r.CompletedAt))
	return err
}

// ListSyncRuns returns sync runs, newest first. An empty period lists all.
func (s *Store) ListSyncRuns(ctx context.Context, period string) ([]SyncRun, error) {
	defer s.rlock()()

	var w where
	if period != "" {
		w.add("period = ?", period)
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, period, status, rows_written, error, started_at, completed_at
		FROM sheet_sync_runs`+w.sql()+`
		ORDER BY started_at DESC, rowid DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var r SyncRun
		var startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Period, &r.Status, &r.RowsWritten, &r.Error, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(startedAt)
		r.CompletedAt = parseTimePtr(completedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// IsSyncComplete reports whether period has a completed sync that started
// at or after since.
func (s *Store) IsSyncComplete(ctx context.Context, period string, since time.Time) (bool, error) {
	defer s.rlock()()

	var count int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sheet_sync_runs
		WHERE period = ? AND status = 'completed' AND started_at >= ?
	`, period, formatTime(since)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

// where accumulates AND-ed conditions.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// addNull filters on whether a timestamp column is set.
func (w *where) addNull(column string, set *bool) {
	if set == nil {
		return
	}
	if *set {
		w.add(column + " IS NOT NULL")
	} else {
		w.add(column + " IS NULL")
	}
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// timeLayout is RFC3339 with fixed-width nanoseconds so stored timestamps
// sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
