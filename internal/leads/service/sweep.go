package service

import (
	"context"
	"errors"

	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/platform/apperr"
)

// ExpireDue resolves reservations that ran out. An unanswered offer is
// redistributed while the matching deadline has not passed and expires after
// it. An unanswered owner approval expires. Returns the number of leads changed.
func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	now := s.now()
	due, err := s.repo.ListReservationsDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, lead := range due {
		if err := ctx.Err(); err != nil {
			return handled, err
		}
		if err := s.resolveReservation(ctx, lead); err != nil {
			// Stale rows were resolved by a concurrent accept or sweep.
			if apperr.Is(err, apperr.KindStaleState) || apperr.Is(err, apperr.KindInvalidTransition) {
				continue
			}
			s.log.SideEffectFailed("reservation_sweep", lead.ID.String(), err)
			continue
		}
		handled++
	}
	return handled, nil
}

func (s *Service) resolveReservation(ctx context.Context, lead domain.Lead) error {
	now := s.now()
	if !lead.ReservationElapsed(now) {
		return nil
	}
	switch lead.Status {
	case domain.StatusWaitingAgentAccept:
		if now.Before(lead.MatchDeadline) {
			_, err := s.redistribute(ctx, lead, "offer timed out")
			return err
		}
		_, err := s.terminate(ctx, lead, domain.StatusExpired, "matching deadline passed", nil)
		return err
	case domain.StatusWaitingOwnerApproval:
		_, err := s.terminate(ctx, lead, domain.StatusExpired, "owner approval timed out", nil)
		return err
	default:
		return errors.New("lead has no reservation to resolve")
	}
}
