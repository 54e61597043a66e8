// Package history persists completed scan reports in a local SQLite
// database so past decisions about a skill can be reviewed and compared.
// The full report is stored as JSON alongside the indexed summary
// columns used for listing and filtering.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillscan/pkg/db"
	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

// Entry is one row of the scan history listing.
type Entry struct {
	ScanID         string    `db:"scan_id" json:"scan_id"`
	Skill          string    `db:"skill" json:"skill"`
	Location       string    `db:"location" json:"location"`
	OverallRisk    string    `db:"overall_risk" json:"overall_risk"`
	Recommendation string    `db:"recommendation" json:"recommendation"`
	TotalFindings  int       `db:"total_findings" json:"total_findings"`
	ScannerVersion string    `db:"scanner_version" json:"scanner_version"`
	ScannedAt      time.Time `db:"scanned_at" json:"scanned_at"`
}

// ListOptions filters and bounds a history listing.
type ListOptions struct {
	Skill string // exact skill name
	Risk  string // overall risk rating
	Limit int
}

// Store is the scan history backed by one SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open opens the history store at dbPath, creating the database and
// applying pending migrations as needed.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	runner := db.NewMigrationRunner(sqlDB)
	if err := runner.Run(ctx, Migrations()); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to migrate history database")
	}

	return &Store{db: sqlDB}, nil
}

// OpenDefault opens the history store at the default database path.
func OpenDefault(ctx context.Context) (*Store, error) {
	dbPath, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return Open(ctx, dbPath)
}

// Migrations returns the scan history schema migrations.
func Migrations() []db.Migration {
	return []db.Migration{
		{
			Version:     20260830120000,
			Description: "create scans table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS scans (
						scan_id TEXT PRIMARY KEY,
						skill TEXT NOT NULL,
						location TEXT NOT NULL,
						overall_risk TEXT NOT NULL,
						recommendation TEXT NOT NULL,
						total_findings INTEGER NOT NULL,
						scanner_version TEXT NOT NULL,
						scanned_at DATETIME NOT NULL,
						report TEXT NOT NULL
					)
				`)
				if err != nil {
					return err
				}
				_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_scans_skill ON scans(skill)`)
				if err != nil {
					return err
				}
				_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_scans_scanned_at ON scans(scanned_at)`)
				return err
			},
			Down: func(tx *sql.Tx) error {
				_, err := tx.Exec(`DROP TABLE IF EXISTS scans`)
				return err
			},
		},
	}
}

// Save stores a completed report, replacing any previous report with the
// same scan ID.
func (s *Store) Save(ctx context.Context, rep *scan.Report) error {
	if rep.ID == "" {
		return errors.New("report has no scan ID")
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return errors.Wrap(err, "failed to marshal report")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scans
			(scan_id, skill, location, overall_risk, recommendation, total_findings, scanner_version, scanned_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.Skill, rep.Location,
		string(rep.Summary.OverallRisk), string(rep.Summary.Recommendation),
		rep.Summary.TotalFindings, rep.ScannerVersion, rep.Timestamp.UTC(), string(data))
	return errors.Wrap(err, "failed to save scan report")
}

// Get loads a stored report by scan ID.
func (s *Store) Get(ctx context.Context, scanID string) (*scan.Report, error) {
	var data string
	err := s.db.GetContext(ctx, &data, "SELECT report FROM scans WHERE scan_id = ?", scanID)
	if err == sql.ErrNoRows {
		return nil, errors.Errorf("scan not found: %s", scanID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load scan report")
	}

	var rep scan.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal stored report")
	}
	return &rep, nil
}

// List returns history entries newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `
		SELECT scan_id, skill, location, overall_risk, recommendation, total_findings, scanner_version, scanned_at
		FROM scans`
	var conds []string
	var args []interface{}
	if opts.Skill != "" {
		conds = append(conds, "skill = ?")
		args = append(args, opts.Skill)
	}
	if opts.Risk != "" {
		conds = append(conds, "overall_risk = ?")
		args = append(args, opts.Risk)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY scanned_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var entries []Entry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list scan history")
	}
	return entries, nil
}

// Delete removes one stored scan.
func (s *Store) Delete(ctx context.Context, scanID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM scans WHERE scan_id = ?", scanID)
	if err != nil {
		return errors.Wrap(err, "failed to delete scan")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check delete result")
	}
	if n == 0 {
		return errors.Errorf("scan not found: %s", scanID)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
