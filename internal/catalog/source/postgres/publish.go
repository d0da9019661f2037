package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"unimatch/internal/catalog"
	dErrors "unimatch/pkg/domain-errors"
	"unimatch/pkg/platform/sentinel"
)

// Publish stores snap as a new version in one transaction. Versions are
// immutable: publishing an existing version fails with sentinel.ErrConflict.
// The snapshot is stored as authored; validation happens when it is loaded.
func (s *Source) Publish(ctx context.Context, snap catalog.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "publish aborted: context cancelled")
	}
	if snap.Version == "" {
		return dErrors.New(dErrors.CodeValidation, "snapshot version is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin publish: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx,
		`INSERT INTO catalog_versions (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, snap.Version)
	if err != nil {
		return fmt.Errorf("insert catalog version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog version %s already published: %w", snap.Version, sentinel.ErrConflict)
	}

	if err := copyRows(ctx, tx, "catalog_institutions",
		[]string{"version", "position", "id", "display_name", "short_code"},
		institutionRows(snap)); err != nil {
		return err
	}
	if err := copyRows(ctx, tx, "catalog_programs",
		[]string{"version", "position", "program_name", "category", "duration_label",
			"minimum_aggregate_score", "availability_kind", "availability_codes"},
		programRows(snap)); err != nil {
		return err
	}
	if err := copyRows(ctx, tx, "catalog_program_requirements",
		[]string{"version", "program_position", "position", "subject_name", "minimum_level", "mandatory"},
		requirementRows(snap)); err != nil {
		return err
	}
	if err := copyRows(ctx, tx, "catalog_subjects",
		[]string{"version", "position", "name", "aliases", "non_contributing", "mandatory"},
		subjectRows(snap)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit publish: %w", err)
	}
	return nil
}

func copyRows(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy %s: %w", table, err)
	}
	return nil
}

func institutionRows(snap catalog.Snapshot) [][]any {
	rows := make([][]any, 0, len(snap.Institutions))
	for i, inst := range snap.Institutions {
		rows = append(rows, []any{snap.Version, i, inst.ID, inst.DisplayName, inst.ShortCode})
	}
	return rows
}

func programRows(snap catalog.Snapshot) [][]any {
	rows := make([][]any, 0, len(snap.Rules))
	for i, r := range snap.Rules {
		kind := r.Availability.Kind
		if kind == "" {
			kind = catalog.AvailabilityUniversal
		}
		codes := r.Availability.Codes
		if codes == nil {
			codes = []string{}
		}
		rows = append(rows, []any{
			snap.Version, i, r.ProgramName, r.Category, r.DurationLabel,
			r.MinimumAggregateScore, string(kind), codes,
		})
	}
	return rows
}

func requirementRows(snap catalog.Snapshot) [][]any {
	var rows [][]any
	for i, r := range snap.Rules {
		for j, req := range r.RequiredSubjects {
			rows = append(rows, []any{snap.Version, i, j, req.Name, int(req.MinimumLevel), req.Mandatory})
		}
	}
	return rows
}

func subjectRows(snap catalog.Snapshot) [][]any {
	rows := make([][]any, 0, len(snap.Subjects))
	for i, d := range snap.Subjects {
		aliases := d.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		rows = append(rows, []any{snap.Version, i, d.Name, aliases, d.NonContributing, d.Mandatory})
	}
	return rows
}
