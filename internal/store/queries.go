package store

import (
	"database/sql"
	"time"

	"github.com/supchat-io/notifyhub/internal/types"
)

func (db *PgNotifyRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res := db.conn.QueryRow(
		"INSERT INTO notifications (user_id, type, reference, workspace_id, message_id, content, is_mention, read, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8) "+
			"RETURNING id, user_id, type, reference, workspace_id, message_id, content, is_mention, read, created_at",
		params.UserId,
		params.Type,
		params.Reference,
		params.WorkspaceId,
		params.MessageId,
		params.Content,
		params.IsMention,
		createdAt,
	)

	var n Notification
	err := res.Scan(
		&n.Id,
		&n.UserId,
		&n.Type,
		&n.Reference,
		&n.WorkspaceId,
		&n.MessageId,
		&n.Content,
		&n.IsMention,
		&n.Read,
		&n.CreatedAt,
	)

	return n, err
}

func (db *PgNotifyRepository) UnreadNotifications(userId string, limit int) ([]Notification, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_id, type, reference, workspace_id, message_id, content, is_mention, read, created_at "+
			"FROM notifications WHERE user_id = $1 AND read = FALSE "+
			"ORDER BY created_at DESC LIMIT $2",
		userId, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.Id,
			&n.UserId,
			&n.Type,
			&n.Reference,
			&n.WorkspaceId,
			&n.MessageId,
			&n.Content,
			&n.IsMention,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (db *PgNotifyRepository) MarkNotificationRead(userId string, notificationId int) (Notification, bool, error) {
	res := db.conn.QueryRow(
		"UPDATE notifications SET read = TRUE "+
			"WHERE id = $1 AND user_id = $2 AND read = FALSE "+
			"RETURNING id, user_id, type, reference, workspace_id, message_id, content, is_mention, read, created_at",
		notificationId, userId,
	)

	var n Notification
	err := res.Scan(
		&n.Id,
		&n.UserId,
		&n.Type,
		&n.Reference,
		&n.WorkspaceId,
		&n.MessageId,
		&n.Content,
		&n.IsMention,
		&n.Read,
		&n.CreatedAt,
	)
	if err == nil {
		return n, true, nil
	}
	if err != sql.ErrNoRows {
		return Notification{}, false, err
	}

	// Nothing flipped: either the record is already read (idempotent
	// no-op) or it does not belong to this user.
	row := db.conn.QueryRow(
		"SELECT id, user_id, type, reference, workspace_id, message_id, content, is_mention, read, created_at "+
			"FROM notifications WHERE id = $1 AND user_id = $2 LIMIT 1",
		notificationId, userId,
	)
	err = row.Scan(
		&n.Id,
		&n.UserId,
		&n.Type,
		&n.Reference,
		&n.WorkspaceId,
		&n.MessageId,
		&n.Content,
		&n.IsMention,
		&n.Read,
		&n.CreatedAt,
	)

	return n, false, err
}

func (db *PgNotifyRepository) MarkAllRead(userId string, scope types.Scope, reference string) (int, error) {
	res, err := db.conn.Exec(
		"UPDATE notifications SET read = TRUE "+
			"WHERE user_id = $1 AND type = $2 AND reference = $3 AND read = FALSE",
		userId, scope, reference,
	)
	if err != nil {
		return 0, err
	}

	flipped, err := res.RowsAffected()
	return int(flipped), err
}

func (db *PgNotifyRepository) CountUnread(userId string, scope types.Scope, reference string) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM notifications "+
			"WHERE user_id = $1 AND type = $2 AND reference = $3 AND read = FALSE",
		userId, scope, reference,
	)

	var count int
	err := row.Scan(&count)
	return count, err
}

func (db *PgNotifyRepository) UnreadChannelsForWorkspace(userId, workspaceId string) ([]ChannelUnread, error) {
	rows, err := db.conn.Query(
		"SELECT reference, COUNT(*) FROM notifications "+
			"WHERE user_id = $1 AND workspace_id = $2 AND type = 'channel' AND read = FALSE "+
			"GROUP BY reference ORDER BY reference",
		userId, workspaceId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []ChannelUnread
	for rows.Next() {
		var c ChannelUnread
		if err := rows.Scan(&c.ChannelId, &c.Count); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}

	return channels, rows.Err()
}

func (db *PgNotifyRepository) GetPreferences(userId string) (Preferences, error) {
	// Create the default record on first access.
	if _, err := db.conn.Exec(
		"INSERT INTO notification_preferences (user_id, mentions_only, sound_enabled, desktop_enabled, updated_at) "+
			"VALUES ($1, FALSE, TRUE, TRUE, $2) ON CONFLICT (user_id) DO NOTHING",
		userId, time.Now().UTC(),
	); err != nil {
		return Preferences{}, err
	}

	row := db.conn.QueryRow(
		"SELECT user_id, mentions_only, sound_enabled, desktop_enabled, updated_at "+
			"FROM notification_preferences WHERE user_id = $1 LIMIT 1",
		userId,
	)

	var p Preferences
	err := row.Scan(
		&p.UserId,
		&p.MentionsOnly,
		&p.SoundEnabled,
		&p.DesktopEnabled,
		&p.UpdatedAt,
	)

	return p, err
}

func (db *PgNotifyRepository) UpdatePreferences(userId string, params UpdatePreferencesParams) (Preferences, error) {
	// Ensure the row exists so a partial update on first contact still
	// merges with the defaults.
	if _, err := db.GetPreferences(userId); err != nil {
		return Preferences{}, err
	}

	res := db.conn.QueryRow(
		"UPDATE notification_preferences SET "+
			"mentions_only = COALESCE($2, mentions_only), "+
			"sound_enabled = COALESCE($3, sound_enabled), "+
			"desktop_enabled = COALESCE($4, desktop_enabled), "+
			"updated_at = $5 "+
			"WHERE user_id = $1 "+
			"RETURNING user_id, mentions_only, sound_enabled, desktop_enabled, updated_at",
		userId,
		params.MentionsOnly,
		params.SoundEnabled,
		params.DesktopEnabled,
		time.Now().UTC(),
	)

	var p Preferences
	err := res.Scan(
		&p.UserId,
		&p.MentionsOnly,
		&p.SoundEnabled,
		&p.DesktopEnabled,
		&p.UpdatedAt,
	)

	return p, err
}

func (db *PgNotifyRepository) ChannelMembers(channelId string) ([]string, error) {
	return db.queryIds(
		"SELECT user_id FROM channel_members WHERE channel_id = $1",
		channelId,
	)
}

func (db *PgNotifyRepository) ConversationParticipants(conversationId string) ([]string, error) {
	return db.queryIds(
		"SELECT user_id FROM conversation_participants WHERE conversation_id = $1",
		conversationId,
	)
}

func (db *PgNotifyRepository) queryIds(query string, args ...any) ([]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
