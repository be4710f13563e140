// Package prefs is the preference gate: per-user notification settings
// read by the dispatcher to shape pushes and exposed to clients for
// their settings UI. Preferences affect presentation only; unread
// state is persisted regardless.
package prefs

import (
	"fmt"
	"log"

	"github.com/supchat-io/notifyhub/internal/store"
	"github.com/supchat-io/notifyhub/internal/types"
)

type Service struct {
	log  *log.Logger
	repo store.NotifyRepository
}

func NewService(logger *log.Logger, repo store.NotifyRepository) *Service {
	return &Service{log: logger, repo: repo}
}

// Get returns the user's preferences, creating the default record
// (mentions_only=false, sound=on, desktop=on) on first access.
func (s *Service) Get(userId string) (types.Preferences, error) {
	p, err := s.repo.GetPreferences(userId)
	if err != nil {
		return types.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}

	return toPreferences(p), nil
}

// Update merges only the provided fields into the stored record and
// returns the merged result.
func (s *Service) Update(userId string, params store.UpdatePreferencesParams) (types.Preferences, error) {
	p, err := s.repo.UpdatePreferences(userId, params)
	if err != nil {
		return types.Preferences{}, fmt.Errorf("update preferences: %w", err)
	}

	s.log.Printf("updated preferences for user %q: mentions_only=%t sound=%t desktop=%t",
		userId, p.MentionsOnly, p.SoundEnabled, p.DesktopEnabled)

	return toPreferences(p), nil
}

func toPreferences(p store.Preferences) types.Preferences {
	return types.Preferences{
		MentionsOnly:   p.MentionsOnly,
		SoundEnabled:   p.SoundEnabled,
		DesktopEnabled: p.DesktopEnabled,
	}
}
