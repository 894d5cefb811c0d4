package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
	txcontext "gonogo/pkg/platform/tx"
)

// PostgresStore persists the size standard table in the size_standards table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertAll writes all rows in one transaction; either every row lands or none do.
func (s *PostgresStore) UpsertAll(ctx context.Context, rows []sizestd.Standard) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO size_standards (naics, title, basis, threshold, unit, effective_fy, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (naics) DO UPDATE SET
				title = EXCLUDED.title,
				basis = EXCLUDED.basis,
				threshold = EXCLUDED.threshold,
				unit = EXCLUDED.unit,
				effective_fy = EXCLUDED.effective_fy,
				updated_at = now()
		`)
		if err != nil {
			return fmt.Errorf("prepare size standard upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				string(r.NAICS), r.Title, string(r.Basis), r.Threshold.String(), r.Unit, r.EffectiveFY,
			); err != nil {
				return fmt.Errorf("upsert size standard %s: %w", r.NAICS, err)
			}
		}
		return nil
	})
}

// List returns all stored rows sorted by NAICS code.
func (s *PostgresStore) List(ctx context.Context) ([]sizestd.Standard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT naics, title, basis, threshold::text, unit, effective_fy
		FROM size_standards
		ORDER BY naics
	`)
	if err != nil {
		return nil, fmt.Errorf("query size standards: %w", err)
	}
	defer rows.Close()

	var out []sizestd.Standard
	for rows.Next() {
		var (
			r         sizestd.Standard
			naics     string
			basis     string
			threshold string
		)
		if err := rows.Scan(&naics, &r.Title, &basis, &threshold, &r.Unit, &r.EffectiveFY); err != nil {
			return nil, fmt.Errorf("scan size standard: %w", err)
		}
		r.NAICS = domain.NAICSCode(naics)
		r.Basis = sizestd.BasisKind(basis)
		if r.Threshold, err = decimal.NewFromString(threshold); err != nil {
			return nil, fmt.Errorf("parse threshold for %s: %w", naics, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate size standards: %w", err)
	}
	return out, nil
}
