// Package store persists users, generated reports, admin references and
// daily usage in a local SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/logging"
)

// DefaultDailyLimit is the number of reports a student may generate per day
// unless an admin raises it.
const DefaultDailyLimit = 3

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User is one registered account. Role is derived from the email at
// registration time; admins bypass the daily limit.
type User struct {
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	RegisteredAt     time.Time `json:"registeredAt"`
	IsRevoked        bool      `json:"isRevoked"`
	ReportsGenerated int       `json:"reportsGenerated"`
	CustomLimit      int       `json:"customLimit"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == "admin" }

// Report is one saved generation: the raw validated payload plus the
// experiment code it was generated for.
type Report struct {
	ID             string    `json:"id"`
	ExperimentCode string    `json:"experimentCode"`
	Payload        []byte    `json:"payload"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Reference is one admin-supplied context snippet fed to the generator.
type Reference struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Store wraps the SQLite database holding all persistent state.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at path and ensures the schema.
func New(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.New")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite is single-writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreError("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreError("failed to set sqlite journal_mode=WAL: %v", err)
	}
	// synchronous=NORMAL is safe under WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreError("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("store ready at %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		role TEXT NOT NULL DEFAULT 'student',
		registered_at DATETIME NOT NULL,
		is_revoked INTEGER NOT NULL DEFAULT 0,
		reports_generated INTEGER NOT NULL DEFAULT 0,
		custom_limit INTEGER NOT NULL DEFAULT 3
	);
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		experiment_code TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_email ON reports(email, created_at DESC);
	CREATE TABLE IF NOT EXISTS admin_references (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ref_text TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS daily_usage (
		email TEXT NOT NULL,
		day TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (email, day)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RegisterUser returns the user for email, creating the account on first
// sight. Emails containing "admin" register with the admin role.
func (s *Store) RegisterUser(email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, err := s.getUserLocked(email); err == nil {
		return u, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u := &User{
		Email:        email,
		Role:         "student",
		RegisteredAt: time.Now().UTC(),
		CustomLimit:  DefaultDailyLimit,
	}
	if strings.Contains(email, "admin") {
		u.Role = "admin"
	}
	_, err := s.db.Exec(
		`INSERT INTO users (email, role, registered_at, custom_limit) VALUES (?, ?, ?, ?)`,
		u.Email, u.Role, u.RegisteredAt, u.CustomLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	logging.Store("registered %s as %s", email, u.Role)
	return u, nil
}

// GetUser fetches one user; ErrNotFound if the email is unknown.
func (s *Store) GetUser(email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUserLocked(email)
}

func (s *Store) getUserLocked(email string) (*User, error) {
	row := s.db.QueryRow(
		`SELECT email, role, registered_at, is_revoked, reports_generated, custom_limit
		 FROM users WHERE email = ?`, email)
	u := &User{}
	err := row.Scan(&u.Email, &u.Role, &u.RegisteredAt, &u.IsRevoked, &u.ReportsGenerated, &u.CustomLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all accounts in registration order.
func (s *Store) ListUsers() ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT email, role, registered_at, is_revoked, reports_generated, custom_limit
		 FROM users ORDER BY registered_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Email, &u.Role, &u.RegisteredAt, &u.IsRevoked, &u.ReportsGenerated, &u.CustomLimit); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// RevokeUser toggles the revoked flag for email.
func (s *Store) RevokeUser(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE users SET is_revoked = NOT is_revoked WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("revoke user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserLimit sets a custom daily report limit for email.
func (s *Store) UpdateUserLimit(email string, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE users SET custom_limit = ? WHERE email = ?`, limit, email)
	if err != nil {
		return fmt.Errorf("update user limit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveReport stores one generated report under email and bumps the user's
// lifetime counter.
func (s *Store) SaveReport(email, experimentCode string, payload []byte) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Report{
		ID:             uuid.NewString(),
		ExperimentCode: experimentCode,
		Payload:        append([]byte(nil), payload...),
		CreatedAt:      time.Now().UTC(),
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO reports (id, email, experiment_code, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, email, r.ExperimentCode, r.Payload, r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE users SET reports_generated = reports_generated + 1 WHERE email = ?`, email,
	); err != nil {
		return nil, fmt.Errorf("bump report counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	logging.Store("saved report %s (%s) for %s", r.ID, experimentCode, email)
	return r, nil
}

// ListReports returns email's reports, most recent first.
func (s *Store) ListReports(email string) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, experiment_code, payload, created_at
		 FROM reports WHERE email = ? ORDER BY created_at DESC, rowid DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.ExperimentCode, &r.Payload, &r.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetReport fetches one report owned by email.
func (s *Store) GetReport(email, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT id, experiment_code, payload, created_at
		 FROM reports WHERE email = ? AND id = ?`, email, id)
	r := &Report{}
	err := row.Scan(&r.ID, &r.ExperimentCode, &r.Payload, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// CheckDailyLimit reports whether email may generate another report today.
// Admins always may.
func (s *Store) CheckDailyLimit(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := s.getUserLocked(email)
	if err != nil {
		return false, err
	}
	if u.IsAdmin() {
		return true, nil
	}
	count, err := s.dailyCountLocked(email)
	if err != nil {
		return false, err
	}
	return count < u.CustomLimit, nil
}

// IncrementDailyUsage counts one generation against today's quota.
func (s *Store) IncrementDailyUsage(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO daily_usage (email, day, count) VALUES (?, ?, 1)
		 ON CONFLICT(email, day) DO UPDATE SET count = count + 1`,
		email, dayKey(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("increment daily usage: %w", err)
	}
	return nil
}

// DailyCount returns the number of reports email generated today.
func (s *Store) DailyCount(email string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dailyCountLocked(email)
}

func (s *Store) dailyCountLocked(email string) (int, error) {
	row := s.db.QueryRow(
		`SELECT count FROM daily_usage WHERE email = ? AND day = ?`,
		email, dayKey(time.Now()))
	var count int
	err := row.Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("daily count: %w", err)
	}
	return count, nil
}

// AddReference stores one admin context snippet.
func (s *Store) AddReference(text string) (*Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`INSERT INTO admin_references (ref_text) VALUES (?)`, text)
	if err != nil {
		return nil, fmt.Errorf("add reference: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Reference{ID: id, Text: text}, nil
}

// RemoveReference deletes one reference by id.
func (s *Store) RemoveReference(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM admin_references WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove reference: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReferences returns all admin references in insertion order.
func (s *Store) ListReferences() ([]Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, ref_text FROM admin_references ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var r Reference
		if err := rows.Scan(&r.ID, &r.Text); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// FullContext joins the lab manual with all admin references into the
// grounding context handed to the generator.
func (s *Store) FullContext(manual string) (string, error) {
	refs, err := s.ListReferences()
	if err != nil {
		return "", err
	}
	texts := make([]string, len(refs))
	for i, r := range refs {
		texts[i] = r.Text
	}
	return manual + "\n\nADDITIONAL ADMIN REFERENCES:\n" + strings.Join(texts, "\n\n"), nil
}
