package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/values"
)

// CallRecordRepository persists call records
type CallRecordRepository struct {
	db DB
}

// NewCallRecordRepository creates a new call record repository
func NewCallRecordRepository(db DB) *CallRecordRepository {
	return &CallRecordRepository{db: db}
}

const insertCallRecord = `
	INSERT INTO call_records (
		id, call_id, tenant_id, agent_id,
		from_number, to_number, direction, status, duration,
		disconnection_reason,
		transfer_tier, transfer_destination, transfer_success, transfer_answered,
		transfer_attempt_time, transfer_wait_duration,
		dnc_flagged, dnc_phrase, error_detail,
		caller_name, loan_amount, funds_purpose, employment_status,
		credit_card_debt, personal_loan_debt, other_debt, total_debt,
		monthly_income, ssn_last_four, steps_completed, intake_data,
		recording_url, recording_duration,
		started_at, ended_at, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10,
		$11, $12, $13, $14,
		$15, $16,
		$17, $18, $19,
		$20, $21, $22, $23,
		$24, $25, $26, $27,
		$28, $29, $30, $31,
		$32, $33,
		$34, $35, $36, $37
	)`

// Insert writes a new record
func (r *CallRecordRepository) Insert(ctx context.Context, rec *call.Record) error {
	a := rec.Answers
	totalDebt := rec.TotalDebt

	var employment *string
	if a.Employment != nil {
		s := a.Employment.String()
		employment = &s
	}

	_, err := r.db.Exec(ctx, insertCallRecord,
		rec.ID, rec.CallID, rec.TenantID, rec.AgentID,
		rec.FromNumber, rec.ToNumber, rec.Direction.String(), rec.Status.String(), decimal.NewFromFloat(rec.Duration),
		string(rec.DisconnectionReason),
		rec.TransferTier.String(), nullString(rec.TransferDestination), rec.TransferSuccess, rec.TransferAnswered,
		rec.TransferAttemptTime, decimal.NewFromFloat(rec.TransferWaitDuration),
		rec.DNCFlagged, nullString(rec.DNCPhrase), nullString(rec.ErrorDetail),
		a.Name, values.Numeric(a.LoanAmount), a.FundsPurpose, employment,
		values.Numeric(a.CreditCardDebt), values.Numeric(a.PersonalLoanDebt), values.Numeric(a.OtherDebt), values.Numeric(&totalDebt),
		values.Numeric(a.MonthlyIncome), a.SSNLastFour, stepNames(rec.StepsCompleted), []byte(rec.IntakeData),
		rec.RecordingURL, values.Numeric(rec.RecordingDuration),
		rec.StartedAt, rec.EndedAt, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return WrapRepositoryError(err, "insert call record")
	}
	return nil
}

// UpdateRecording stores the resolved recording. The recording length
// replaces the call duration, so repeating it with the same values is a no-op.
func (r *CallRecordRepository) UpdateRecording(ctx context.Context, id uuid.UUID, url string, duration float64) error {
	d := decimal.NewFromFloat(duration)
	tag, err := r.db.Exec(ctx, `
		UPDATE call_records
		SET recording_url = $2, recording_duration = $3, duration = $3, updated_at = NOW()
		WHERE id = $1`,
		id, url, d,
	)
	if err != nil {
		return WrapRepositoryError(err, "update call record recording")
	}
	if tag.RowsAffected() == 0 {
		return WrapRepositoryError(ErrNotFound, "call record")
	}
	return nil
}

// UpdateCallEnd stores the runtime's final duration and status. A duration
// taken from the recording is kept.
func (r *CallRecordRepository) UpdateCallEnd(ctx context.Context, id uuid.UUID, duration *float64, status call.Status, endedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE call_records
		SET duration = CASE WHEN recording_duration IS NULL THEN COALESCE($2, duration) ELSE duration END,
		    status = $3,
		    ended_at = $4,
		    updated_at = NOW()
		WHERE id = $1`,
		id, values.Numeric(duration), status.String(), endedAt,
	)
	if err != nil {
		return WrapRepositoryError(err, "update call end")
	}
	if tag.RowsAffected() == 0 {
		return WrapRepositoryError(ErrNotFound, "call record")
	}
	return nil
}

// GetByID loads a record
func (r *CallRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*call.Record, error) {
	var (
		rec                                       call.Record
		direction, status, reason, tier           string
		destination, dncPhrase, errorDetail       *string
		employment                                *string
		duration, waitDuration, totalDebt         decimal.Decimal
		loan, cc, pl, other, income, recordingLen decimal.NullDecimal
		steps                                     []string
		intakeData                                []byte
	)

	err := r.db.QueryRow(ctx, `
		SELECT
			id, call_id, tenant_id, agent_id,
			from_number, to_number, direction, status, duration,
			disconnection_reason,
			transfer_tier, transfer_destination, transfer_success, transfer_answered,
			transfer_attempt_time, transfer_wait_duration,
			dnc_flagged, dnc_phrase, error_detail,
			caller_name, loan_amount, funds_purpose, employment_status,
			credit_card_debt, personal_loan_debt, other_debt, total_debt,
			monthly_income, ssn_last_four, steps_completed, intake_data,
			recording_url, recording_duration,
			started_at, ended_at, created_at, updated_at
		FROM call_records
		WHERE id = $1`, id,
	).Scan(
		&rec.ID, &rec.CallID, &rec.TenantID, &rec.AgentID,
		&rec.FromNumber, &rec.ToNumber, &direction, &status, &duration,
		&reason,
		&tier, &destination, &rec.TransferSuccess, &rec.TransferAnswered,
		&rec.TransferAttemptTime, &waitDuration,
		&rec.DNCFlagged, &dncPhrase, &errorDetail,
		&rec.Answers.Name, &loan, &rec.Answers.FundsPurpose, &employment,
		&cc, &pl, &other, &totalDebt,
		&income, &rec.Answers.SSNLastFour, &steps, &intakeData,
		&rec.RecordingURL, &recordingLen,
		&rec.StartedAt, &rec.EndedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, WrapRepositoryError(err, "call record")
	}

	if err := rec.Direction.UnmarshalText([]byte(direction)); err != nil {
		return nil, fmt.Errorf("call record %s: %w", id, err)
	}
	if rec.Status, err = call.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("call record %s: %w", id, err)
	}
	if rec.TransferTier, err = intake.ParseTier(tier); err != nil {
		return nil, fmt.Errorf("call record %s: %w", id, err)
	}
	if employment != nil {
		e, err := intake.ParseEmployment(*employment)
		if err != nil {
			return nil, fmt.Errorf("call record %s: %w", id, err)
		}
		rec.Answers.Employment = &e
	}
	for _, name := range steps {
		step, err := intake.ParseStep(name)
		if err != nil {
			return nil, fmt.Errorf("call record %s: %w", id, err)
		}
		rec.StepsCompleted = append(rec.StepsCompleted, step)
	}

	rec.DisconnectionReason = call.DisconnectionReason(reason)
	rec.TransferDestination = deref(destination)
	rec.DNCPhrase = deref(dncPhrase)
	rec.ErrorDetail = deref(errorDetail)
	rec.Duration = duration.InexactFloat64()
	rec.TransferWaitDuration = waitDuration.InexactFloat64()
	rec.TotalDebt = totalDebt.InexactFloat64()
	rec.Answers.LoanAmount = values.FromNumeric(loan)
	rec.Answers.CreditCardDebt = values.FromNumeric(cc)
	rec.Answers.PersonalLoanDebt = values.FromNumeric(pl)
	rec.Answers.OtherDebt = values.FromNumeric(other)
	rec.Answers.MonthlyIncome = values.FromNumeric(income)
	rec.RecordingDuration = values.FromNumeric(recordingLen)
	rec.IntakeData = intakeData

	return &rec, nil
}

func stepNames(steps []intake.Step) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.String()
	}
	return names
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
