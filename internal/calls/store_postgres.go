package calls

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PgxPool is the subset of pgxpool.Pool the store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists call records in the calls table.
type PGStore struct {
	pool   PgxPool
	tracer trace.Tracer
}

// NewPGStore creates a Postgres-backed call store.
func NewPGStore(pool PgxPool) *PGStore {
	if pool == nil {
		panic("calls: pgx pool cannot be nil")
	}
	return &PGStore{pool: pool, tracer: otel.Tracer("concierge.internal.calls.store")}
}

const selectColumns = `id, conversation_id, provider_call_id, status, target_name, target_phone, notes, script,
	party_size, to_char(reservation_date, 'YYYY-MM-DD'), to_char(window_start, 'HH24:MI'), to_char(window_end, 'HH24:MI'),
	error, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, rec *Record) error {
	ctx, span := s.tracer.Start(ctx, "calls.create")
	defer span.End()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	query := `
		INSERT INTO calls (id, conversation_id, provider_call_id, status, target_name, target_phone, notes, script,
			party_size, reservation_date, window_start, window_end, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::date, $11::time, $12::time, $13)
		RETURNING created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		rec.ID,
		nullText(rec.ConversationID),
		nullText(rec.ProviderCallID),
		string(rec.Status),
		rec.TargetName,
		rec.TargetPhone,
		nullText(rec.Notes),
		nullText(rec.Script),
		nullInt(rec.PartySize),
		nullText(rec.ReservationDate),
		nullText(rec.WindowStart),
		nullText(rec.WindowEnd),
		nullText(rec.Error),
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("calls: insert call: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	ctx, span := s.tracer.Start(ctx, "calls.get")
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM calls WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCallNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("calls: get call: %w", err)
	}
	return rec, nil
}

func (s *PGStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	ctx, span := s.tracer.Start(ctx, "calls.list_recent")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM calls ORDER BY created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("calls: list calls: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("calls: scan call: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *PGStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, providerCallID, errMsg string) error {
	ctx, span := s.tracer.Start(ctx, "calls.update_status")
	defer span.End()

	query := `
		UPDATE calls
		SET status = $2,
			provider_call_id = COALESCE(NULLIF($3, ''), provider_call_id),
			error = COALESCE(NULLIF($4, ''), error),
			updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, id, string(status), providerCallID, errMsg)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("calls: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCallNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec                                  Record
		status                               string
		conversationID, providerID, notes    pgtype.Text
		script, date, windowStart, windowEnd pgtype.Text
		errText                              pgtype.Text
		partySize                            pgtype.Int4
	)
	if err := row.Scan(&rec.ID, &conversationID, &providerID, &status, &rec.TargetName, &rec.TargetPhone,
		&notes, &script, &partySize, &date, &windowStart, &windowEnd, &errText, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	rec.ConversationID = conversationID.String
	rec.ProviderCallID = providerID.String
	rec.Notes = notes.String
	rec.Script = script.String
	rec.ReservationDate = date.String
	rec.WindowStart = windowStart.String
	rec.WindowEnd = windowEnd.String
	rec.Error = errText.String
	if partySize.Valid {
		rec.PartySize = int(partySize.Int32)
	}
	return &rec, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func nullInt(n int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(n), Valid: n != 0}
}
