package inbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Notify fans one message out to every pharmacist in recipients. It runs
// inside the caller's transaction when ctx carries one.
func (s *Service) Notify(ctx context.Context, recipients []uuid.UUID, typ, message string) ([]*Message, error) {
	if len(recipients) == 0 {
		s.logger.Warn().Str("type", typ).Msg("notification has no recipients")
		return nil, nil
	}
	msgs := make([]*Message, 0, len(recipients))
	for _, id := range recipients {
		msgs = append(msgs, &Message{PharmacistID: id, Type: typ, Message: message})
	}
	if err := s.repo.CreateMany(ctx, msgs); err != nil {
		return nil, fmt.Errorf("notify %s: %w", typ, err)
	}
	return msgs, nil
}

// List returns the latest notifications of a pharmacist, newest first.
func (s *Service) List(ctx context.Context, pharmacistID uuid.UUID) ([]*Message, error) {
	msgs, err := s.repo.ListByPharmacist(ctx, pharmacistID, ListLimit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	return msgs, nil
}

func (s *Service) MarkRead(ctx context.Context, pharmacistID, id uuid.UUID) (*Message, error) {
	return s.repo.MarkRead(ctx, pharmacistID, id)
}
