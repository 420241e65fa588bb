package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/log"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxJSONResponseBytes  = 1 << 20
	maxBriefResponseBytes = 32 << 20
	defaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "incident-cli"
)

// Client talks to the incident REST API.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	UserAgent      string
	Logger         zerolog.Logger

	// Now and NewRequestID are overridable in tests.
	Now          func() time.Time
	NewRequestID func() string
}

type submitRequest struct {
	IndicatorType  string         `json:"indicator_type"`
	IndicatorValue string         `json:"indicator_value"`
	Source         string         `json:"source"`
	Metadata       submitMetadata `json:"metadata"`
}

type submitMetadata struct {
	UserAgent string `json:"user_agent"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (c Client) SubmitIncident(ctx context.Context, indicator domain.Indicator) (domain.Submission, error) {
	const op = "submit incident"

	endpoint, err := c.endpoint("incidents")
	if err != nil {
		return domain.Submission{}, err
	}

	requestID := c.requestID()
	body, err := json.Marshal(submitRequest{
		IndicatorType:  string(indicator.Type),
		IndicatorValue: indicator.Value,
		Source:         indicator.SourceOrDefault(),
		Metadata: submitMetadata{
			UserAgent: c.userAgent(),
			Timestamp: c.now().UTC().Format(time.RFC3339Nano),
			RequestID: requestID,
		},
	})
	if err != nil {
		return domain.Submission{}, fmt.Errorf("encode submit request: %w", err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Submission{}, fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	var submission domain.Submission
	if err := c.doJSON(req, op, &submission); err != nil {
		return domain.Submission{}, err
	}
	if submission.IncidentID == "" {
		return domain.Submission{}, fmt.Errorf("%s: response missing incident_id", op)
	}

	return submission, nil
}

func (c Client) FetchStatus(ctx context.Context, id domain.IncidentID) (domain.StatusRecord, error) {
	const op = "fetch incident status"

	if id == "" {
		return domain.StatusRecord{}, domain.ErrIncidentIDRequired
	}
	endpoint, err := c.endpoint("incidents", string(id))
	if err != nil {
		return domain.StatusRecord{}, err
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.StatusRecord{}, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var record domain.StatusRecord
	if err := c.doJSON(req, op, &record); err != nil {
		return domain.StatusRecord{}, err
	}
	if record.IncidentID == "" {
		record.IncidentID = id
	}

	return record, nil
}

func (c Client) DownloadBrief(ctx context.Context, id domain.IncidentID) ([]byte, error) {
	const op = "download brief"

	if id == "" {
		return nil, domain.ErrIncidentIDRequired
	}
	endpoint, err := c.endpoint("incidents", string(id), "brief")
	if err != nil {
		return nil, err
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create brief request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.do(req, op)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBriefResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read brief: %w", err)
	}
	if len(data) > maxBriefResponseBytes {
		return nil, fmt.Errorf("%s: brief exceeds %d bytes", op, maxBriefResponseBytes)
	}

	return data, nil
}

func (c Client) doJSON(req *http.Request, op string, into any) error {
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(into); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// do sends req and turns any non-2xx answer into a *domain.APIError.
func (c Client) do(req *http.Request, op string) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent())

	started := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.Logger.Debug().
		Str(log.FieldURL, req.URL.String()).
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeAPIError(resp, op)
	}

	return resp, nil
}

func decodeAPIError(resp *http.Response, op string) error {
	apiErr := &domain.APIError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}

	var payload errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&payload); err == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Detail != "":
			apiErr.Message = payload.Detail
		default:
			apiErr.Message = payload.Error
		}
	}

	return apiErr
}

func (c Client) endpoint(segments ...string) (string, error) {
	if c.BaseURL == "" {
		return "", errors.New("api base url is required")
	}

	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	escaped := make([]string, 0, len(segments)+1)
	escaped = append(escaped, strings.TrimSuffix(parsed.Path, "/"))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	joined := strings.Join(escaped, "/")

	parsed.RawPath = joined
	parsed.Path, err = url.PathUnescape(joined)
	if err != nil {
		return "", fmt.Errorf("build api path: %w", err)
	}
	return parsed.String(), nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func (c Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return defaultUserAgent
}

func (c Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Client) requestID() string {
	if c.NewRequestID != nil {
		return c.NewRequestID()
	}
	return uuid.NewString()
}
