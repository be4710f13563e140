package store

import (
	"time"

	"github.com/supchat-io/notifyhub/internal/types"
)

type Notification struct {
	Id          int
	UserId      string
	Type        types.Scope
	Reference   string
	WorkspaceId string
	MessageId   string
	Content     string
	IsMention   bool
	Read        bool
	CreatedAt   time.Time
}

type Preferences struct {
	UserId         string
	MentionsOnly   bool
	SoundEnabled   bool
	DesktopEnabled bool
	UpdatedAt      time.Time
}

type ChannelUnread struct {
	ChannelId string
	Count     int
}

type CreateNotificationParams struct {
	UserId      string
	Type        types.Scope
	Reference   string
	WorkspaceId string
	MessageId   string
	Content     string
	IsMention   bool
	CreatedAt   time.Time
}

// UpdatePreferencesParams carries a partial update; nil fields are left
// unchanged.
type UpdatePreferencesParams struct {
	MentionsOnly   *bool `json:"mentions_only,omitempty"`
	SoundEnabled   *bool `json:"sound_enabled,omitempty"`
	DesktopEnabled *bool `json:"desktop_enabled,omitempty"`
}
