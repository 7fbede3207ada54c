package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/events"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/policy"
	"github.com/gigmarket/backend/internal/repositories"
)

type TrustService struct {
	trustRepo   *repositories.TrustRepo
	bookingRepo *repositories.BookingRepo
	publisher   events.Publisher
	log         *zap.Logger
}

func NewTrustService(
	trustRepo *repositories.TrustRepo,
	bookingRepo *repositories.BookingRepo,
	publisher events.Publisher,
	log *zap.Logger,
) *TrustService {
	return &TrustService{
		trustRepo:   trustRepo,
		bookingRepo: bookingRepo,
		publisher:   publisher,
		log:         log,
	}
}

// Initialize creates the score row for a new user. Safe to call more
// than once, an existing row is left untouched.
func (s *TrustService) Initialize(ctx context.Context, userID uuid.UUID) (*models.TrustScore, error) {
	return s.trustRepo.Init(ctx, userID, policy.ScoreInitial, policy.TierStandard)
}

// GetScore returns the current score, applying inactivity decay lazily
// if the user has been idle past the grace period.
func (s *TrustService) GetScore(ctx context.Context, userID uuid.UUID) (*models.TrustScore, error) {
	ts, err := s.trustRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	lastActive, err := s.trustRepo.LastActivity(ctx, userID)
	if err != nil {
		return ts, nil
	}
	idleDays := int(time.Since(lastActive).Hours() / 24)
	decay := policy.InactivityDecay(idleDays)
	if decay == 0 {
		return ts, nil
	}

	return s.ApplyDelta(ctx, userID, -decay, policy.ReasonInactivityDecay, map[string]any{
		"idle_days": idleDays,
	})
}

// ApplyDelta applies a score change atomically: the new score is
// clamped to [0,100] and the tier recomputed from the band table.
func (s *TrustService) ApplyDelta(ctx context.Context, userID uuid.UUID, delta int, reasonCode string, meta map[string]any) (*models.TrustScore, error) {
	ev := &models.TrustEvent{
		UserID:     userID,
		Delta:      delta,
		ReasonCode: reasonCode,
		Meta:       meta,
	}
	ts, err := s.trustRepo.ApplyDelta(ctx, userID, func(current int) (int, string) {
		next := policy.ClampScore(current + delta)
		return next, policy.TierForScore(next)
	}, ev)
	if err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, events.ChannelNotify, events.Event{
		Type: events.EventTrustScoreChanged,
		Payload: map[string]any{
			"user_id": userID.String(),
			"delta":   delta,
			"score":   ts.Score,
			"tier":    ts.Tier,
			"reason":  reasonCode,
		},
	})
	return ts, nil
}

// ApplyCompletion credits a finished booking: the base completion delta
// plus a one-time bonus when the user crosses a completions milestone.
func (s *TrustService) ApplyCompletion(ctx context.Context, userID, bookingID uuid.UUID) (*models.TrustScore, error) {
	ts, err := s.ApplyDelta(ctx, userID, policy.CompletionDelta, policy.ReasonBookingCompleted, map[string]any{
		"booking_id": bookingID.String(),
	})
	if err != nil {
		return nil, err
	}

	completed, err := s.bookingRepo.CompletedCount(ctx, userID)
	if err != nil {
		s.log.Warn("completed count lookup failed", zap.Error(err))
		return ts, nil
	}
	if bonus, ok := policy.CompletionBonuses[completed]; ok {
		ts, err = s.ApplyDelta(ctx, userID, bonus, policy.ReasonCompletionBonus, map[string]any{
			"completed_bookings": completed,
		})
		if err != nil {
			return nil, err
		}
	}
	return ts, nil
}

// PolicyFor resolves the tier policy governing a user's marketplace
// limits from their current score.
func (s *TrustService) PolicyFor(ctx context.Context, userID uuid.UUID) (policy.TierPolicy, string, error) {
	ts, err := s.GetScore(ctx, userID)
	if err != nil {
		return policy.TierPolicy{}, "", err
	}
	return policy.PolicyFor(ts.Tier), ts.Tier, nil
}

func (s *TrustService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.TrustEvent, error) {
	return s.trustRepo.History(ctx, userID, limit)
}
