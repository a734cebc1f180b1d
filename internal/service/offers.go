package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/placement"
	"internship-placement/internal/search"
)

var errSearchDisabled = errors.New("offer search is not configured")

// CreateOffer records a new DRAFT offer for the acting organization.
func (s *ApplicationService) CreateOffer(ctx context.Context, actor placement.Actor, offer *placement.Offer) (*placement.Offer, error) {
	if actor.Role != placement.RoleOrganization {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "only organizations create offers")
	}

	offer.ID = uuid.New().String()
	offer.OrganizationID = actor.ID
	offer.State = placement.OfferDraft
	offer.CreatedAt = time.Now().UTC()
	offer.PublishedAt = nil
	offer.ClosedAt = nil

	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// PublishOffer opens a draft offer to applications. Publication requires an
// accepted agreement between the organization and a director.
func (s *ApplicationService) PublishOffer(ctx context.Context, actor placement.Actor, offerID string) (*placement.Offer, error) {
	offer, err := s.ownedOffer(ctx, actor, offerID)
	if err != nil {
		return nil, err
	}
	if offer.State != placement.OfferDraft {
		return nil, apperrors.NewPreconditionFailedError("only draft offers can be published")
	}

	accepted, err := s.gate.HasAcceptedAgreement(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, apperrors.NewPreconditionFailedError("organization has no accepted agreement with a director")
	}

	now := time.Now().UTC()
	if err := s.offers.SetState(ctx, offer.ID, placement.OfferOpen, now); err != nil {
		return nil, err
	}
	offer.State = placement.OfferOpen
	offer.PublishedAt = &now

	s.reindexOffer(ctx, offer)
	return offer, nil
}

// CloseOffer stops accepting applications. Existing applications continue
// through their lifecycle.
func (s *ApplicationService) CloseOffer(ctx context.Context, actor placement.Actor, offerID string) (*placement.Offer, error) {
	offer, err := s.ownedOffer(ctx, actor, offerID)
	if err != nil {
		return nil, err
	}
	if offer.State != placement.OfferOpen {
		return nil, apperrors.NewPreconditionFailedError("only open offers can be closed")
	}

	now := time.Now().UTC()
	if err := s.offers.SetState(ctx, offer.ID, placement.OfferClosed, now); err != nil {
		return nil, err
	}
	offer.State = placement.OfferClosed
	offer.ClosedAt = &now

	// closed offers leave the search view entirely
	s.removeOfferFromIndex(ctx, offer.ID)
	return offer, nil
}

// ListMyOffers returns the acting organization's offers.
func (s *ApplicationService) ListMyOffers(ctx context.Context, actor placement.Actor) ([]*placement.Offer, error) {
	if actor.Role != placement.RoleOrganization {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "only organizations list their offers")
	}
	return s.offers.ListByOrganization(ctx, actor.ID)
}

// SearchOffers queries the search view. Callers other than the owning
// organization only see open offers.
func (s *ApplicationService) SearchOffers(ctx context.Context, actor placement.Actor, q search.OfferQuery) ([]*placement.Offer, error) {
	if s.index == nil {
		return nil, apperrors.NewSearchIndexError("search", errSearchDisabled)
	}
	if actor.Role != placement.RoleOrganization || q.OrganizationID != actor.ID {
		q.OpenOnly = true
	}
	return s.index.SearchOffers(ctx, q)
}

func (s *ApplicationService) ownedOffer(ctx context.Context, actor placement.Actor, offerID string) (*placement.Offer, error) {
	if actor.Role != placement.RoleOrganization {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "only organizations manage offers")
	}
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.OrganizationID != actor.ID {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardOwnership, "offer belongs to another organization")
	}
	return offer, nil
}

// reindexOffer updates the search view. Index lag is tolerated, so failures
// are logged and the state change stands.
func (s *ApplicationService) reindexOffer(ctx context.Context, offer *placement.Offer) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexOffer(ctx, offer); err != nil {
		s.logger.Warn("offer reindex failed", map[string]interface{}{
			"offerId": offer.ID,
			"error":   err.Error(),
		})
	}
}

func (s *ApplicationService) removeOfferFromIndex(ctx context.Context, offerID string) {
	if s.index == nil {
		return
	}
	if err := s.index.RemoveOffer(ctx, offerID); err != nil {
		s.logger.Warn("offer index removal failed", map[string]interface{}{
			"offerId": offerID,
			"error":   err.Error(),
		})
	}
}
