package survey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTokenTaken is returned by SessionRepository.Create when the token is
// already in use.
var ErrTokenTaken = errors.New("survey: session token already exists")

type TemplateRepository interface {
	// Create stores the template with its questions and options and assigns
	// their ids. It must run inside a transaction.
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	// ListActive returns active templates, newest first, with questions.
	ListActive(ctx context.Context) ([]*Template, error)
	// LatestByName returns nil without error when no template has name.
	LatestByName(ctx context.Context, name string) (*Template, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	// MarkExpired flips a PENDING session to EXPIRED and reports whether a
	// row changed.
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	// Claim moves a PENDING, unexpired session to COMPLETED. Exactly one of
	// any number of concurrent callers gets true.
	Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	SaveAnswers(ctx context.Context, answers []Answer) error
}
