package types

import (
	"time"
)

// Scope is the dimension an unread counter or notification is tracked
// against.
type Scope string

const (
	ScopeChannel      Scope = "channel"
	ScopeConversation Scope = "conversation"
)

func (s Scope) Valid() bool {
	return s == ScopeChannel || s == ScopeConversation
}

type EventType string

const (
	EventNew      EventType = "new"
	EventEdit     EventType = "edit"
	EventDelete   EventType = "delete"
	EventReaction EventType = "reaction"
	EventReply    EventType = "reply"
)

func (t EventType) Valid() bool {
	switch t {
	case EventNew, EventEdit, EventDelete, EventReaction, EventReply:
		return true
	}
	return false
}

// Counts reports whether events of this type create notification
// records and increment unread counters. Edits, deletes and reactions
// only update client state in place.
func (t EventType) Counts() bool {
	return t == EventNew || t == EventReply
}

// Event is the producer-agnostic message event consumed by the
// dispatcher.
type Event struct {
	Type        EventType `json:"type"`
	Scope       Scope     `json:"scope"`
	ScopeId     string    `json:"scope_id"`
	WorkspaceId string    `json:"workspace_id,omitempty"`
	MessageId   string    `json:"message_id"`
	SenderId    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name,omitempty"`
	Content     string    `json:"content"`
	Mentions    []string  `json:"mentions,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type Sender struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// PushPayload is the frame delivered to a live connection for a
// message event.
type PushPayload struct {
	EventType   EventType `json:"event_type"`
	Scope       Scope     `json:"scope"`
	ScopeId     string    `json:"scope_id"`
	WorkspaceId string    `json:"workspace_id,omitempty"`
	MessageId   string    `json:"message_id"`
	Content     string    `json:"content"`
	IsMention   bool      `json:"is_mention"`
	Sender      Sender    `json:"sender"`
	Timestamp   time.Time `json:"timestamp"`
	Sound       bool      `json:"sound"`
	Desktop     bool      `json:"desktop"`
}

type Notification struct {
	Id          int       `json:"id"`
	Type        Scope     `json:"type"`
	Reference   string    `json:"reference"`
	WorkspaceId string    `json:"workspace_id,omitempty"`
	MessageId   string    `json:"message_id"`
	Content     string    `json:"content"`
	IsMention   bool      `json:"is_mention"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

type Preferences struct {
	MentionsOnly   bool `json:"mentions_only"`
	SoundEnabled   bool `json:"sound_enabled"`
	DesktopEnabled bool `json:"desktop_enabled"`
}

// ChannelUnread is one row of the derived per-workspace unread view.
type ChannelUnread struct {
	ChannelId string `json:"channel_id"`
	Count     int    `json:"count"`
}

// Room identifiers are namespaced so channel and workspace rooms
// cannot collide.
func ChannelRoom(channelId string) string {
	return "channel:" + channelId
}

func WorkspaceRoom(workspaceId string) string {
	return "workspace:" + workspaceId
}
