// Package pgstore provides a PostgreSQL implementation of alert.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/opsgenix/internal/alert"
	"github.com/linnemanlabs/opsgenix/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/opsgenix/internal/alert/pgstore")

//go:embed schema.sql
var schema string

// Store persists alerts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store.
// The caller owns the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const alertColumns = `id, title, description, severity, status, source_system, source_id,
	assigned_to, ai_priority_score, ai_classification, suggested_action, triage_method, auto_resolved,
	created_at, updated_at, resolved_at`

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// List returns a page of alerts, newest first.
func (s *Store) List(ctx context.Context, f alert.Filter) ([]*alert.Alert, error) {
	ctx, span := startSpan(ctx, "pgstore.List", "SELECT")
	defer span.End()

	var (
		where []string
		args  []any
	)
	if f.Severity != "" {
		args = append(args, string(f.Severity))
		where = append(where, fmt.Sprintf("severity = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Skip)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := []*alert.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			fail(span, err)
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		fail(span, err)
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	span.SetAttributes(attribute.Int("db.rows", len(out)))
	return out, nil
}

// Get retrieves an alert by ID.
func (s *Store) Get(ctx context.Context, id string) (*alert.Alert, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	a, err := scanAlert(s.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		fail(span, err)
		return nil, false, err
	}
	return a, true, nil
}

// Put inserts or updates an alert.
func (s *Store) Put(ctx context.Context, a *alert.Alert) error {
	ctx, span := startSpan(ctx, "pgstore.Put", "UPSERT")
	defer span.End()

	query := `INSERT INTO alerts (` + alertColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	ON CONFLICT (id) DO UPDATE SET
		title             = EXCLUDED.title,
		description       = EXCLUDED.description,
		severity          = EXCLUDED.severity,
		status            = EXCLUDED.status,
		source_system     = EXCLUDED.source_system,
		source_id         = EXCLUDED.source_id,
		assigned_to       = EXCLUDED.assigned_to,
		ai_priority_score = EXCLUDED.ai_priority_score,
		ai_classification = EXCLUDED.ai_classification,
		suggested_action  = EXCLUDED.suggested_action,
		triage_method     = EXCLUDED.triage_method,
		auto_resolved     = EXCLUDED.auto_resolved,
		updated_at        = EXCLUDED.updated_at,
		resolved_at       = EXCLUDED.resolved_at`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.Title, a.Description, string(a.Severity), string(a.Status),
		a.SourceSystem, a.SourceID, a.AssignedTo, a.AIPriorityScore, a.AIClassification,
		a.SuggestedAction, string(a.TriageMethod), a.AutoResolved, a.CreatedAt, a.UpdatedAt, a.ResolvedAt,
	)
	if err != nil {
		fail(span, err)
		return fmt.Errorf("upsert alert: %w", err)
	}
	return nil
}

// Summary counts alerts by status and severity.
func (s *Store) Summary(ctx context.Context) (*alert.Summary, error) {
	ctx, span := startSpan(ctx, "pgstore.Summary", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT status, severity, count(*) FROM alerts GROUP BY status, severity`)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	sum := alert.NewSummary()
	for rows.Next() {
		var (
			status, severity string
			n                int
		)
		if err := rows.Scan(&status, &severity, &n); err != nil {
			fail(span, err)
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.TotalAlerts += n
		sum.StatusBreakdown[alert.Status(status)] += n
		sum.SeverityBreakdown[alert.Severity(severity)] += n
	}
	if err := rows.Err(); err != nil {
		fail(span, err)
		return nil, fmt.Errorf("iterate summary: %w", err)
	}
	return sum, nil
}

func scanAlert(row pgx.Row) (*alert.Alert, error) {
	var (
		a                        alert.Alert
		severity, status, method string
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &severity, &status, &a.SourceSystem, &a.SourceID,
		&a.AssignedTo, &a.AIPriorityScore, &a.AIClassification, &a.SuggestedAction, &method, &a.AutoResolved,
		&a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.Severity = alert.Severity(severity)
	a.Status = alert.Status(status)
	a.TriageMethod = triage.Method(method)
	return &a, nil
}
