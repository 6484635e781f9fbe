package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

// CachedTemplateAdapter wraps a TemplateRepository with a read-through cache.
// Absent overrides are cached too, since most lookups find nothing.
type CachedTemplateAdapter struct {
	adapter repositories.TemplateRepository
	cache   providers.CacheProvider
	ttl     int
	metrics *observability.Metrics
}

// NewCachedTemplateAdapter creates a new cached template adapter. ttlSeconds
// <= 0 selects the default TTL; metrics may be nil.
func NewCachedTemplateAdapter(adapter repositories.TemplateRepository, cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) repositories.TemplateRepository {
	if ttlSeconds <= 0 {
		ttlSeconds = templateOverrideTTL
	}
	return &CachedTemplateAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttlSeconds,
		metrics: metrics,
	}
}

// Cache TTL (in seconds)
const templateOverrideTTL = 300

type cachedTemplate struct {
	Missing  bool               `json:"missing,omitempty"`
	Template *entities.Template `json:"template,omitempty"`
}

func templateCacheKey(docType entities.DocumentType, classification entities.Classification) string {
	if classification == "" {
		classification = "_default"
	}
	return fmt.Sprintf("template:override:%s:%s", docType, classification)
}

// FindOverride retrieves an override with caching
func (a *CachedTemplateAdapter) FindOverride(ctx context.Context, docType entities.DocumentType, classification entities.Classification) (*entities.Template, error) {
	cacheKey := templateCacheKey(docType, classification)
	logger := observability.LoggerFromContext(ctx)

	if data, err := a.cache.Get(ctx, cacheKey); err == nil {
		var cached cachedTemplate
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "template:override")
			if cached.Missing {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("no template override for %s/%s", docType, classification))
			}
			if cached.Template != nil {
				return cached.Template, nil
			}
		} else {
			logger.Warn().Err(err).Str("key", cacheKey).Msg("Failed to unmarshal cached template")
		}
	}

	observability.RecordCacheMiss(ctx, a.metrics, "template:override")

	tmpl, err := a.adapter.FindOverride(ctx, docType, classification)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	entry := cachedTemplate{Template: tmpl, Missing: tmpl == nil}
	go func() {
		bgCtx := context.Background()
		data, mErr := json.Marshal(entry)
		if mErr != nil {
			return
		}
		if sErr := a.cache.Set(bgCtx, cacheKey, data, a.ttl); sErr != nil {
			logger.Warn().Err(sErr).Str("key", cacheKey).Msg("Failed to cache template override")
		}
	}()

	if err != nil {
		return nil, err
	}
	return tmpl, nil
}
