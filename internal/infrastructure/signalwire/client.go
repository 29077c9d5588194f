// Package signalwire looks up call recordings through the SignalWire LAML
// REST API.
package signalwire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/operationseasyfi/ai-voice-agent/internal/domain/errors"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/config"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrecord"
)

const (
	apiVersion       = "2010-04-01"
	defaultTimeout   = 30 * time.Second
	requestsPerSec   = 5
	maxResponseBytes = 1 << 20
)

// Client fetches recordings for finished calls
type Client struct {
	baseURL   string
	projectID string
	token     string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewClient creates a recording client for the configured space. SpaceURL
// may be a bare host ("example.signalwire.com") or a full URL.
func NewClient(cfg config.SignalWireConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("signalwire project id, token and space url are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	space := strings.TrimSuffix(cfg.SpaceURL, "/")
	if !strings.Contains(space, "://") {
		space = "https://" + space
	}
	if _, err := url.Parse(space); err != nil {
		return nil, fmt.Errorf("invalid signalwire space url: %w", err)
	}

	return &Client{
		baseURL:   fmt.Sprintf("%s/api/laml/%s/Accounts/%s", space, apiVersion, url.PathEscape(cfg.ProjectID)),
		projectID: cfg.ProjectID,
		token:     cfg.Token,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), requestsPerSec*2),
		logger:  logger,
	}, nil
}

type recordingList struct {
	Recordings []recording `json:"recordings"`
}

type recording struct {
	SID         string      `json:"sid"`
	Duration    json.Number `json:"duration"`
	Status      string      `json:"status"`
	DateCreated string      `json:"date_created"`
}

// GetRecording returns the call's first recording, or nil when the call has
// none yet.
func (c *Client) GetRecording(ctx context.Context, callID string) (*callrecord.Recording, error) {
	if callID == "" {
		return nil, apperrors.NewValidationError("MISSING_CALL_ID", "call id is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/Calls/%s/Recordings.json", c.baseURL, url.PathEscape(callID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating recording request: %w", err)
	}
	req.SetBasicAuth(c.projectID, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("signalwire", "recording request failed").WithCause(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewExternalError("signalwire",
			fmt.Sprintf("recording lookup returned status %d", resp.StatusCode))
	}

	var list recordingList
	if err := json.NewDecoder(http.MaxBytesReader(nil, resp.Body, maxResponseBytes)).Decode(&list); err != nil {
		return nil, apperrors.NewExternalError("signalwire", "invalid recording response").WithCause(err)
	}
	if len(list.Recordings) == 0 {
		c.logger.Debug("no recordings for call", zap.String("call_id", callID))
		return nil, nil
	}

	first := list.Recordings[0]
	if first.SID == "" {
		return nil, apperrors.NewExternalError("signalwire", "recording without sid")
	}

	var duration float64
	if first.Duration != "" {
		if duration, err = first.Duration.Float64(); err != nil {
			return nil, apperrors.NewExternalError("signalwire", "invalid recording duration").WithCause(err)
		}
	}

	return &callrecord.Recording{
		SID:      first.SID,
		URL:      fmt.Sprintf("%s/Recordings/%s.mp3", c.baseURL, url.PathEscape(first.SID)),
		Duration: duration,
	}, nil
}
