package sam

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"gonogo/internal/evidence"
	"gonogo/internal/evidence/providers"
	"gonogo/pkg/domain"
)

// ExclusionsProvider queries the SAM Exclusions API.
type ExclusionsProvider struct {
	c *client
}

// NewExclusionsProvider builds the live exclusion provider.
func NewExclusionsProvider(cfg Config, logger *slog.Logger) *ExclusionsProvider {
	return &ExclusionsProvider{c: newClient(evidence.SourceExclusions, cfg.ExclusionsURL, cfg.APIKey, cfg, logger)}
}

func (p *ExclusionsProvider) Source() string { return evidence.SourceExclusions }

// CheckExclusions returns all exclusion records for id. A 404 means no records.
func (p *ExclusionsProvider) CheckExclusions(ctx context.Context, id domain.Identifier) (*evidence.ExclusionResult, error) {
	resp, err := p.c.get(ctx, exclusionParams(id))
	if err != nil {
		return nil, err
	}

	result := &evidence.ExclusionResult{
		AsOf: resp.FetchedAt,
		Evidence: evidence.Evidence{
			Source:    evidence.SourceExclusions,
			Reference: resp.Reference,
			FetchedAt: resp.FetchedAt,
		},
	}
	if resp.Status == http.StatusNotFound {
		return result, nil
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.c.providerID, "response is not valid JSON", nil)
	}
	result.Hits = parseExclusionHits(resp.Body)
	return result, nil
}

func exclusionParams(id domain.Identifier) url.Values {
	params := url.Values{}
	switch id.Kind() {
	case domain.IdentifierUEI:
		params.Set("ueiSAM", id.Value())
	case domain.IdentifierCAGE:
		params.Set("cageCode", id.Value())
	case domain.IdentifierLegalName:
		params.Set("q", id.Value())
	}
	return params
}

// parseExclusionHits accepts both the HAL (_embedded.exclusions) and the
// excludedEntity response shapes.
func parseExclusionHits(body []byte) []evidence.ExclusionHit {
	var hits []evidence.ExclusionHit
	for _, item := range gjson.GetBytes(body, "_embedded.exclusions").Array() {
		hits = append(hits, evidence.ExclusionHit{
			Name:    item.Get("name").String(),
			Type:    item.Get("exclusionType").String(),
			Status:  item.Get("exclusionStatus").String(),
			EndDate: item.Get("exclusionEndDate").String(),
		})
	}
	for _, item := range gjson.GetBytes(body, "excludedEntity").Array() {
		name := item.Get("exclusionIdentification.entityName").String()
		if name == "" {
			name = item.Get("exclusionIdentification.name").String()
		}
		hits = append(hits, evidence.ExclusionHit{
			Name:    name,
			Type:    item.Get("exclusionDetails.exclusionType").String(),
			Status:  item.Get("exclusionActions.listOfActions.0.recordStatus").String(),
			EndDate: item.Get("exclusionActions.listOfActions.0.terminationDate").String(),
		})
	}
	return hits
}
