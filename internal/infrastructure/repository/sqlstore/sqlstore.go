// Package sqlstore persists datasets in a SQL database through database/sql.
// Driver differences are limited to the placeholder style described by a
// Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
	"github.com/PauloFidalgo/cmov-5g/internal/pkg/label"
)

// Schema creates the records table. Both supported drivers accept it.
const Schema = `
CREATE TABLE IF NOT EXISTS kpm_records (
    source TEXT NOT NULL,
    id BIGINT NOT NULL,
    latency BIGINT NOT NULL,
    pdcp_sdu_volume_dl DOUBLE PRECISION NOT NULL,
    pdcp_sdu_volume_ul DOUBLE PRECISION NOT NULL,
    rlc_sdu_delay_dl DOUBLE PRECISION NOT NULL,
    ue_thp_dl DOUBLE PRECISION NOT NULL,
    ue_thp_ul DOUBLE PRECISION NOT NULL,
    prb_tot_dl BIGINT NOT NULL,
    prb_tot_ul BIGINT NOT NULL,
    source_file TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (source, id)
)`

const (
	maxIDSQL = `SELECT COALESCE(MAX(id), 0) FROM kpm_records WHERE source = ?`

	insertRecordSQL = `
INSERT INTO kpm_records (source, id, latency, pdcp_sdu_volume_dl, pdcp_sdu_volume_ul,
    rlc_sdu_delay_dl, ue_thp_dl, ue_thp_ul, prb_tot_dl, prb_tot_ul, source_file)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source, id) DO NOTHING`

	selectColumns = `id, latency, pdcp_sdu_volume_dl, pdcp_sdu_volume_ul, rlc_sdu_delay_dl,
    ue_thp_dl, ue_thp_ul, prb_tot_dl, prb_tot_ul, source_file`

	selectAllSQL  = `SELECT ` + selectColumns + ` FROM kpm_records WHERE source = ? ORDER BY id ASC`
	selectLastSQL = `SELECT ` + selectColumns + ` FROM kpm_records WHERE source = ? ORDER BY id DESC LIMIT ?`

	sourcesSQL = `
SELECT source, COUNT(*), MAX(id)
FROM kpm_records
GROUP BY source
ORDER BY source`

	deleteSourceSQL = `DELETE FROM kpm_records WHERE source = ?`
)

// Dialect describes how a driver spells bind parameters.
type Dialect struct {
	Name     string
	Numbered bool
}

var (
	// Postgres numbers parameters as $1, $2, ...
	Postgres = Dialect{Name: "postgres", Numbered: true}
	// SQLite uses positional ? parameters.
	SQLite = Dialect{Name: "sqlite"}
)

// Rebind rewrites the ? placeholders of query for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// Store is a domain.DatasetStore over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db. The schema is expected to exist; see EnsureSchema.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// EnsureSchema creates the records table when it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return errors.Wrapf(err, "%s store: create schema", s.dialect.Name)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores the records of source whose id is above the stored maximum.
func (s *Store) Append(ctx context.Context, source string, records []domain.Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		if err == nil {
			infra.RecordStoreAppend(time.Since(start))
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "%s store: begin", s.dialect.Name)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var maxID int64
	if err = tx.QueryRowContext(ctx, s.dialect.Rebind(maxIDSQL), source).Scan(&maxID); err != nil {
		return errors.Wrapf(err, "%s store: max id of %s", s.dialect.Name, source)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.Rebind(insertRecordSQL))
	if err != nil {
		return errors.Wrapf(err, "%s store: prepare insert", s.dialect.Name)
	}
	defer stmt.Close()

	for _, r := range records {
		if r.ID <= maxID {
			continue
		}
		if _, err = stmt.ExecContext(ctx,
			source, r.ID, r.Latency,
			r.PdcpSduVolumeDL, r.PdcpSduVolumeUL, r.RlcSduDelayDl,
			r.UEThpDl, r.UEThpUl, r.PrbTotDl, r.PrbTotUl,
			r.SourceFile,
		); err != nil {
			return errors.Wrapf(err, "%s store: insert %s/%d", s.dialect.Name, source, r.ID)
		}
		maxID = r.ID
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrapf(err, "%s store: commit", s.dialect.Name)
	}
	return nil
}

// Records returns the last records of source in id order, or all of them when
// last is not positive.
func (s *Store) Records(ctx context.Context, source string, last int) ([]domain.Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if last > 0 {
		rows, err = s.db.QueryContext(ctx, s.dialect.Rebind(selectLastSQL), source, last)
	} else {
		rows, err = s.db.QueryContext(ctx, s.dialect.Rebind(selectAllSQL), source)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s store: query %s", s.dialect.Name, source)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(
			&r.ID, &r.Latency,
			&r.PdcpSduVolumeDL, &r.PdcpSduVolumeUL, &r.RlcSduDelayDl,
			&r.UEThpDl, &r.UEThpUl, &r.PrbTotDl, &r.PrbTotUl,
			&r.SourceFile,
		); err != nil {
			return nil, errors.Wrapf(err, "%s store: scan %s", s.dialect.Name, source)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s store: rows %s", s.dialect.Name, source)
	}

	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	if last > 0 {
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	}
	return records, nil
}

// Sources lists the stored datasets ordered by name.
func (s *Store) Sources(ctx context.Context) ([]domain.SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx, sourcesSQL)
	if err != nil {
		return nil, errors.Wrapf(err, "%s store: list sources", s.dialect.Name)
	}
	defer rows.Close()

	infos := make([]domain.SourceInfo, 0)
	for rows.Next() {
		var info domain.SourceInfo
		if err := rows.Scan(&info.Source, &info.Records, &info.MaxID); err != nil {
			return nil, errors.Wrapf(err, "%s store: scan source", s.dialect.Name)
		}
		info.Label = label.Describe(info.Source)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s store: list sources", s.dialect.Name)
	}
	return infos, nil
}

// Delete removes every record of source.
func (s *Store) Delete(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Rebind(deleteSourceSQL), source); err != nil {
		return errors.Wrapf(err, "%s store: delete %s", s.dialect.Name, source)
	}
	return nil
}

var _ domain.DatasetStore = (*Store)(nil)
