package repository

import (
	"context"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/dnc"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/values"
)

// DNCRepository stores do-not-call list entries. Rows are history: a number
// flagged twice has two entries.
type DNCRepository struct {
	db DB
}

// NewDNCRepository creates a new DNC repository
func NewDNCRepository(db DB) *DNCRepository {
	return &DNCRepository{db: db}
}

// Insert adds an entry
func (r *DNCRepository) Insert(ctx context.Context, entry *dnc.Entry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO dnc_list (
			id, tenant_id, phone_number, call_record_id,
			reason, detection_method, detected_phrase, flagged_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.TenantID, entry.PhoneNumber.String(), entry.CallRecordID,
		entry.Reason, entry.DetectionMethod.String(), nullString(entry.DetectedPhrase), entry.FlaggedAt,
	)
	if err != nil {
		return WrapRepositoryError(err, "insert dnc entry")
	}
	return nil
}

// ListByPhone returns every entry for a number, newest first
func (r *DNCRepository) ListByPhone(ctx context.Context, phone values.PhoneNumber) ([]*dnc.Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, phone_number, call_record_id,
		       reason, detection_method, detected_phrase, flagged_at
		FROM dnc_list
		WHERE phone_number = $1
		ORDER BY flagged_at DESC`, phone.String())
	if err != nil {
		return nil, WrapRepositoryError(err, "list dnc entries")
	}
	defer rows.Close()

	var entries []*dnc.Entry
	for rows.Next() {
		var (
			e      dnc.Entry
			number string
			method string
			phrase *string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &number, &e.CallRecordID,
			&e.Reason, &method, &phrase, &e.FlaggedAt); err != nil {
			return nil, WrapRepositoryError(err, "scan dnc entry")
		}
		if e.PhoneNumber, err = values.ParseCallerAddress(number); err != nil {
			return nil, WrapRepositoryError(err, "scan dnc entry")
		}
		if e.DetectionMethod, err = dnc.ParseDetectionMethod(method); err != nil {
			return nil, WrapRepositoryError(err, "scan dnc entry")
		}
		e.DetectedPhrase = deref(phrase)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapRepositoryError(err, "list dnc entries")
	}
	return entries, nil
}
