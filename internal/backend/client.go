// Package backend talks to the TalentWire contact API. The only write path
// is the bulk upsert endpoint; the server deduplicates on email, so resending
// a batch is safe.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/talentwire/leadharvest/internal/harvest"
	"github.com/talentwire/leadharvest/internal/retry"
)

// ErrCredentialExpired reports a rejected API token. Callers must surface it
// distinctly: re-running with the same token cannot succeed.
var ErrCredentialExpired = errors.New("backend credential expired")

const bulkPath = "/api/vendor_contacts/bulk"

// Client posts contact batches to the backend.
type Client struct {
	baseURL     string
	token       string
	sourceEmail string
	jobSource   string
	httpClient  *http.Client
	logger      *zap.Logger
}

// Options configures a Client. BaseURL and Token are required.
type Options struct {
	BaseURL     string
	Token       string
	SourceEmail string
	JobSource   string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewClient builds a Client. A zero Timeout defaults to 30s.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend: base URL is required")
	}
	if opts.Token == "" {
		return nil, errors.New("backend: API token is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		token:       opts.Token,
		sourceEmail: opts.SourceEmail,
		jobSource:   opts.JobSource,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		logger:      logger,
	}, nil
}

type wireContact struct {
	FullName           string `json:"full_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone,omitempty"`
	LinkedinID         string `json:"linkedin_id,omitempty"`
	LinkedinInternalID string `json:"linkedin_internal_id,omitempty"`
	CompanyName        string `json:"company_name,omitempty"`
	Location           string `json:"location,omitempty"`
	SourceEmail        string `json:"source_email,omitempty"`
	JobSource          string `json:"job_source,omitempty"`
}

type bulkRequest struct {
	Contacts []wireContact `json:"contacts"`
}

// BulkResult is the server's accounting for one upsert call.
type BulkResult struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// BulkUpsert sends the batch in a single request. A 401 response returns an
// error wrapping both ErrCredentialExpired and a retry permanence marker so
// orchestrators stop immediately. Other non-2xx statuses return plain errors
// and may be retried.
func (c *Client) BulkUpsert(ctx context.Context, contacts []harvest.ContactRecord) (BulkResult, error) {
	if len(contacts) == 0 {
		return BulkResult{}, nil
	}

	payload := bulkRequest{Contacts: make([]wireContact, 0, len(contacts))}
	for _, contact := range contacts {
		payload.Contacts = append(payload.Contacts, wireContact{
			FullName:           contact.FullName,
			Email:              contact.Email,
			Phone:              contact.Phone,
			LinkedinID:         contact.ProfileRef,
			LinkedinInternalID: contact.SourceID,
			CompanyName:        contact.Company,
			Location:           contact.Location,
			SourceEmail:        c.sourceEmail,
			JobSource:          c.jobSource,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return BulkResult{}, fmt.Errorf("encoding bulk payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+bulkPath, bytes.NewReader(body))
	if err != nil {
		return BulkResult{}, fmt.Errorf("building bulk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return BulkResult{}, fmt.Errorf("posting %d contacts: %w", len(contacts), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Error("backend rejected credentials", zap.Int("status", resp.StatusCode))
		return BulkResult{}, retry.Permanent(fmt.Errorf("bulk upsert: %w", ErrCredentialExpired))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return BulkResult{}, fmt.Errorf("bulk upsert returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result BulkResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return BulkResult{}, fmt.Errorf("decoding bulk response: %w", err)
	}
	c.logger.Info("bulk upsert complete",
		zap.Int("sent", len(contacts)),
		zap.Int("inserted", result.Inserted),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
