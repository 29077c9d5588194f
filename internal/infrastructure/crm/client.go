// Package crm talks to the lead CRM: it looks callers up before the greeting
// and receives the collected intake answers after the call.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/call"
	apperrors "github.com/operationseasyfi/ai-voice-agent/internal/domain/errors"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/values"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/config"
)

const (
	defaultTimeout = 5 * time.Second
	requestsPerSec = 20
	errorBodyLimit = 512
)

// Client is an HTTP client for the CRM lead API
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a CRM client
func NewClient(cfg config.CRMConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("crm base url is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid crm base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), requestsPerSec*2),
		logger:  logger,
	}, nil
}

type leadResponse struct {
	Name       string   `json:"name"`
	LoanAmount *float64 `json:"loan_amount"`
}

// LookupLead finds the lead for a caller. An unknown caller is nil, nil.
func (c *Client) LookupLead(ctx context.Context, phone values.PhoneNumber) (*intake.Lead, error) {
	query := url.Values{"phone": {phone.String()}}
	req, err := c.newRequest(ctx, http.MethodGet, "/leads/lookup?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, c.statusError("lead lookup", resp)
	}

	var lead leadResponse
	if err := json.NewDecoder(resp.Body).Decode(&lead); err != nil {
		return nil, apperrors.NewExternalError("crm", "invalid lead response").WithCause(err)
	}
	return &intake.Lead{Name: strings.TrimSpace(lead.Name), LoanAmount: lead.LoanAmount}, nil
}

// IntakeUpdate is the body of a lead intake update
type IntakeUpdate struct {
	PhoneNumber        string         `json:"phone_number"`
	CallID             string         `json:"call_id"`
	IntakeData         intake.Answers `json:"intake_data"`
	TotalUnsecuredDebt float64        `json:"total_unsecured_debt"`
	TransferTier       intake.Tier    `json:"transfer_tier"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// PushIntake sends a finished call's answers to the lead record
func (c *Client) PushIntake(ctx context.Context, record *call.Record) error {
	body, err := json.Marshal(IntakeUpdate{
		PhoneNumber:        record.FromNumber,
		CallID:             record.CallID,
		IntakeData:         record.Answers,
		TotalUnsecuredDebt: record.TotalDebt,
		TransferTier:       record.TransferTier,
		UpdatedAt:          record.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encoding intake update: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/leads/intake-update", bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.statusError("intake update", resp)
	}
	c.logger.Debug("crm intake updated", zap.String("call_id", record.CallID))
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating crm request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("crm", "request failed").WithCause(err)
	}
	return resp, nil
}

func (c *Client) statusError(operation string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return apperrors.NewExternalError("crm", fmt.Sprintf("%s returned status %d", operation, resp.StatusCode)).
		WithDetails(map[string]interface{}{"body": string(snippet)})
}
