package sam

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"gonogo/internal/evidence"
	"gonogo/internal/evidence/providers"
	"gonogo/pkg/domain"
)

// EntityProvider queries the SAM Entity Information API for registration status.
type EntityProvider struct {
	c *client
}

// NewEntityProvider builds the live registration provider.
func NewEntityProvider(cfg Config, logger *slog.Logger) *EntityProvider {
	return &EntityProvider{c: newClient(evidence.SourceRegistration, cfg.EntityURL, cfg.APIKey, cfg, logger)}
}

func (p *EntityProvider) Source() string { return evidence.SourceRegistration }

// LookupRegistration returns the registration status for id. A 404 or an empty
// entity list is RegistrationNotFound.
func (p *EntityProvider) LookupRegistration(ctx context.Context, id domain.Identifier) (*evidence.RegistrationResult, error) {
	resp, err := p.c.get(ctx, entityParams(id))
	if err != nil {
		return nil, err
	}

	uei, cage, legalName := id.Fields()
	result := &evidence.RegistrationResult{
		Status:    evidence.RegistrationNotFound,
		UEI:       uei,
		CAGE:      cage,
		LegalName: legalName,
		AsOf:      resp.FetchedAt,
		Evidence: evidence.Evidence{
			Source:    evidence.SourceRegistration,
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

	entity, ok := firstEntity(resp.Body)
	if !ok {
		return result, nil
	}
	if v := firstString(entity, "entity.ueiSAM", "entity.uei", "entityRegistration.ueiSAM"); v != "" {
		result.UEI = v
	}
	if v := firstString(entity, "entity.cageCode", "entityRegistration.cageCode"); v != "" {
		result.CAGE = v
	}
	if v := firstString(entity, "entity.legalBusinessName", "entityRegistration.legalBusinessName"); v != "" {
		result.LegalName = v
	}

	status := firstString(entity, "registration.status", "entityRegistration.registrationStatus")
	if status == "" {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.c.providerID, "entity record has no registration status", nil)
	}
	if strings.EqualFold(status, "active") {
		result.Status = evidence.RegistrationActive
	} else {
		result.Status = evidence.RegistrationInactive
	}
	return result, nil
}

func entityParams(id domain.Identifier) url.Values {
	params := url.Values{}
	params.Set("includeSections", "entityRegistration,coreData")
	switch id.Kind() {
	case domain.IdentifierUEI:
		params.Set("ueiSAM", id.Value())
	case domain.IdentifierCAGE:
		params.Set("cageCode", id.Value())
	case domain.IdentifierLegalName:
		params.Set("legalBusinessName", id.Value())
	}
	return params
}

func firstEntity(body []byte) (gjson.Result, bool) {
	for _, path := range []string{"_embedded.entities.0", "entityData.0"} {
		if r := gjson.GetBytes(body, path); r.Exists() {
			return r, true
		}
	}
	return gjson.Result{}, false
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p).String(); v != "" {
			return v
		}
	}
	return ""
}
