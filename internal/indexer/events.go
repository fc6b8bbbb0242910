package indexer

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
)

// ProfileUpdateEvent announces that one of an owner's sources changed. Text
// carries résumé text, Profile the professional-network sections and
// Repositories the code repositories; only the field matching Source is read.
type ProfileUpdateEvent struct {
	OwnerID      string           `json:"owner_id"`
	Source       SourceKind       `json:"source"`
	Text         string           `json:"text,omitempty"`
	Profile      *ProfileSections `json:"profile,omitempty"`
	Repositories []Repository     `json:"repositories,omitempty"`
	RequestID    string           `json:"request_id,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Apply re-indexes the source named by the event.
func (e *Engine) Apply(ctx context.Context, event ProfileUpdateEvent) (int, error) {
	switch event.Source {
	case SourceResume:
		return e.IndexResume(ctx, event.OwnerID, event.Text)
	case SourceLinkedIn:
		var profile ProfileSections
		if event.Profile != nil {
			profile = *event.Profile
		} else {
			profile.About = event.Text
		}
		return e.IndexProfile(ctx, event.OwnerID, profile)
	case SourceGitHub:
		return e.IndexRepositories(ctx, event.OwnerID, event.Repositories)
	}
	return 0, fmt.Errorf("%w: unknown source %q", apperrors.ErrInvalidInput, event.Source)
}
