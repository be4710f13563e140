package store

import "github.com/supchat-io/notifyhub/internal/types"

type NotifyRepository interface {
	Ping() error
	CreateNotification(params CreateNotificationParams) (Notification, error)
	UnreadNotifications(userId string, limit int) ([]Notification, error)
	// MarkNotificationRead flips the read flag on one notification. The
	// returned bool is false when the record was already read, which
	// callers treat as an idempotent no-op.
	MarkNotificationRead(userId string, notificationId int) (Notification, bool, error)
	// MarkAllRead flips every unread notification for the user and
	// scope and returns how many were flipped.
	MarkAllRead(userId string, scope types.Scope, reference string) (int, error)
	CountUnread(userId string, scope types.Scope, reference string) (int, error)
	UnreadChannelsForWorkspace(userId, workspaceId string) ([]ChannelUnread, error)
	GetPreferences(userId string) (Preferences, error)
	UpdatePreferences(userId string, params UpdatePreferencesParams) (Preferences, error)
	ChannelMembers(channelId string) ([]string, error)
	ConversationParticipants(conversationId string) ([]string, error)
}
