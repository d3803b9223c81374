package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miradorstack/mirador-triage/internal/models"
)

const insightClass = "PatternInsight"

// InsightStore persists mined pattern insights as Weaviate objects.
type InsightStore struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewInsightStore constructs a Weaviate-backed insight store. An empty endpoint
// yields a store that accepts and drops every batch.
func NewInsightStore(endpoint, apiKey string, timeout time.Duration) *InsightStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &InsightStore{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StoreInsights writes one object per insight, tagged with the batch id.
func (s *InsightStore) StoreInsights(ctx context.Context, batchID string, insights []models.PatternInsight) error {
	if s == nil {
		return fmt.Errorf("insight store not initialised")
	}
	if s.endpoint == "" {
		return nil
	}

	for _, insight := range insights {
		payload := map[string]interface{}{
			"class":      insightClass,
			"properties": buildInsightProperties(batchID, insight),
		}
		if err := s.postObject(ctx, payload); err != nil {
			return fmt.Errorf("store insight %s: %w", insight.Pattern, err)
		}
	}
	return nil
}

func (s *InsightStore) postObject(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/v1/objects", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("weaviate returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return nil
}

func buildInsightProperties(batchID string, insight models.PatternInsight) map[string]interface{} {
	props := map[string]interface{}{
		"batchId":         batchID,
		"pattern":         insight.Pattern,
		"category":        insight.Category,
		"occurrences":     insight.Occurrences,
		"prevalence":      insight.Prevalence,
		"highestPriority": string(insight.HighestPriority),
		"bugIds":          insight.BugIDs,
	}
	if !insight.LastSeen.IsZero() {
		props["lastSeen"] = insight.LastSeen.UTC().Format(time.RFC3339)
	}
	return props
}
