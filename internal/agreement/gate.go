// Package agreement exposes the gate the offer and approval flows consult:
// does this organization hold an accepted agreement with a director, and
// which director is that.
package agreement

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"internship-placement/internal/common/logger"
	"internship-placement/internal/repository"
)

const (
	cacheKeyPrefix = "agreement:director:"
	cacheTTL       = 5 * time.Minute

	// sentinel cached when no accepted agreement exists, so repeated
	// lookups for unagreed organizations also skip the database
	cacheMiss = "__none__"
)

// Gate answers agreement predicates with a redis cache in front of the
// agreement_requests table.
type Gate struct {
	repo   *repository.AgreementRepository
	redis  *redis.Client
	logger logger.Logger
}

func NewGate(repo *repository.AgreementRepository, rdb *redis.Client, log logger.Logger) *Gate {
	return &Gate{
		repo:   repo,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"component": "agreement-gate"}),
	}
}

// HasAcceptedAgreement reports whether the organization may publish offers.
func (g *Gate) HasAcceptedAgreement(ctx context.Context, organizationID string) (bool, error) {
	directorID, err := g.AssignedDirector(ctx, organizationID)
	if err != nil {
		return false, err
	}
	return directorID != "", nil
}

// AssignedDirector resolves the director named by the organization's
// accepted agreement, or "" when there is none.
func (g *Gate) AssignedDirector(ctx context.Context, organizationID string) (string, error) {
	cacheKey := cacheKeyPrefix + organizationID
	if val, err := g.redis.Get(ctx, cacheKey).Result(); err == nil {
		if val == cacheMiss {
			return "", nil
		}
		return val, nil
	}

	directorID, err := g.repo.AcceptedDirector(ctx, organizationID)
	if err != nil {
		return "", err
	}

	cached := directorID
	if cached == "" {
		cached = cacheMiss
	}
	if err := g.redis.Set(ctx, cacheKey, cached, cacheTTL).Err(); err != nil {
		g.logger.Warn("agreement cache write failed", map[string]interface{}{
			"organizationId": organizationID,
			"error":          err.Error(),
		})
	}

	return directorID, nil
}

// Invalidate drops the cached resolution after an agreement decision.
func (g *Gate) Invalidate(ctx context.Context, organizationID string) {
	if err := g.redis.Del(ctx, cacheKeyPrefix+organizationID).Err(); err != nil {
		g.logger.Warn("agreement cache invalidation failed", map[string]interface{}{
			"organizationId": organizationID,
			"error":          err.Error(),
		})
	}
}
