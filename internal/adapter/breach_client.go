// Package adapter contains clients for external providers.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/tracker-tokens/internal/errors"
	"github.com/tracker-tokens/internal/logging"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/service"
)

const providerName = "breach-range-api"

// BreachRangeClient queries a breach-intelligence provider over its
// k-anonymity range endpoint. Only a hash prefix ever appears in the request
// URL; the full hash and the email stay local.
type BreachRangeClient struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
}

// rangeEntry is one candidate row of the provider's range response
type rangeEntry struct {
	Suffix   string                `json:"suffix"`
	Breaches []breachRecordPayload `json:"breaches"`
}

// breachRecordPayload mirrors the provider's breach record schema
type breachRecordPayload struct {
	Name        string   `json:"Name"`
	Title       string   `json:"Title"`
	Domain      string   `json:"Domain"`
	BreachDate  string   `json:"BreachDate"`
	PwnCount    int64    `json:"PwnCount"`
	DataClasses []string `json:"DataClasses"`
	IsVerified  bool     `json:"IsVerified"`
	IsSensitive bool     `json:"IsSensitive"`
}

// NewBreachRangeClient creates a new range client. timeout bounds each
// lookup; callers can cancel earlier through the context.
func NewBreachRangeClient(baseURL string, timeout time.Duration, logger *logging.Logger) *BreachRangeClient {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &BreachRangeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// QueryRange fetches the candidate suffix set for a hash prefix. Any
// transport or provider failure is reported as GatewayUnavailable so callers
// never mistake it for an empty result.
func (c *BreachRangeClient) QueryRange(ctx context.Context, prefix string) ([]*service.RangeCandidate, error) {
	url := fmt.Sprintf("%s/range/%s", c.baseURL, prefix)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewGatewayUnavailableError(providerName, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewGatewayUnavailableError(providerName, err)
	}
	defer resp.Body.Close()

	// 404 on a range endpoint means no candidates share the prefix
	if resp.StatusCode == http.StatusNotFound {
		return []*service.RangeCandidate{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewGatewayUnavailableError(providerName,
			fmt.Errorf("unexpected status %d from range endpoint", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewGatewayUnavailableError(providerName, err)
	}

	var entries []rangeEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, apperrors.NewGatewayUnavailableError(providerName,
			fmt.Errorf("failed to parse range response: %w", err))
	}

	candidates := make([]*service.RangeCandidate, 0, len(entries))
	for _, entry := range entries {
		candidate := &service.RangeCandidate{
			Suffix:   entry.Suffix,
			Breaches: make([]*models.BreachResult, 0, len(entry.Breaches)),
		}
		for _, record := range entry.Breaches {
			candidate.Breaches = append(candidate.Breaches, &models.BreachResult{
				Name:        record.Name,
				Title:       record.Title,
				Domain:      record.Domain,
				BreachDate:  record.BreachDate,
				PwnCount:    record.PwnCount,
				DataClasses: record.DataClasses,
				IsVerified:  record.IsVerified,
				IsSensitive: record.IsSensitive,
			})
		}
		candidates = append(candidates, candidate)
	}

	c.logger.WithFields(map[string]interface{}{
		"prefix":      prefix,
		"candidates":  len(candidates),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Range query completed")

	return candidates, nil
}
