package store

import (
	"github.com/stretchr/testify/mock"

	"github.com/supchat-io/notifyhub/internal/types"
)

type MockNotifyRepository struct {
	mock.Mock
}

func (m *MockNotifyRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockNotifyRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	args := m.Called(params)
	return args.Get(0).(Notification), args.Error(1)
}
func (m *MockNotifyRepository) UnreadNotifications(userId string, limit int) ([]Notification, error) {
	args := m.Called(userId, limit)
	return args.Get(0).([]Notification), args.Error(1)
}
func (m *MockNotifyRepository) MarkNotificationRead(userId string, notificationId int) (Notification, bool, error) {
	args := m.Called(userId, notificationId)
	return args.Get(0).(Notification), args.Bool(1), args.Error(2)
}
func (m *MockNotifyRepository) MarkAllRead(userId string, scope types.Scope, reference string) (int, error) {
	args := m.Called(userId, scope, reference)
	return args.Int(0), args.Error(1)
}
func (m *MockNotifyRepository) CountUnread(userId string, scope types.Scope, reference string) (int, error) {
	args := m.Called(userId, scope, reference)
	return args.Int(0), args.Error(1)
}
func (m *MockNotifyRepository) UnreadChannelsForWorkspace(userId, workspaceId string) ([]ChannelUnread, error) {
	args := m.Called(userId, workspaceId)
	return args.Get(0).([]ChannelUnread), args.Error(1)
}
func (m *MockNotifyRepository) GetPreferences(userId string) (Preferences, error) {
	args := m.Called(userId)
	return args.Get(0).(Preferences), args.Error(1)
}
func (m *MockNotifyRepository) UpdatePreferences(userId string, params UpdatePreferencesParams) (Preferences, error) {
	args := m.Called(userId, params)
	return args.Get(0).(Preferences), args.Error(1)
}
func (m *MockNotifyRepository) ChannelMembers(channelId string) ([]string, error) {
	args := m.Called(channelId)
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockNotifyRepository) ConversationParticipants(conversationId string) ([]string, error) {
	args := m.Called(conversationId)
	return args.Get(0).([]string), args.Error(1)
}
