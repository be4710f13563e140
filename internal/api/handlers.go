package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"

	"github.com/supchat-io/notifyhub/internal/dispatch"
	"github.com/supchat-io/notifyhub/internal/hub"
	"github.com/supchat-io/notifyhub/internal/store"
	"github.com/supchat-io/notifyhub/internal/types"
)

const defaultListLimit = 50

type HealthResponse struct {
	Status string `json:"status"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

// MarkReadResponse reports what a mark-read actually changed so clients
// can adjust badges without refetching counts.
type MarkReadResponse struct {
	Flipped    bool        `json:"flipped"`
	Scope      types.Scope `json:"scope,omitempty"`
	Reference  string      `json:"reference,omitempty"`
	ScopeDelta int64       `json:"scope_delta"`
	TotalDelta int64       `json:"total_delta"`
}

type MarkAllReadResponse struct {
	Flipped int   `json:"flipped"`
	Cleared int64 `json:"cleared"`
}

func (s *NotifyApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// scopeFromQuery resolves the channel_id/conversation_id query pair.
// Exactly one may be present; neither is allowed when optional is true.
func scopeFromQuery(r *http.Request, optional bool) (types.Scope, string, bool, *ApiError) {
	channelId := r.URL.Query().Get("channel_id")
	conversationId := r.URL.Query().Get("conversation_id")

	switch {
	case channelId != "" && conversationId != "":
		return "", "", false, NewBadRequestError()
	case channelId != "":
		return types.ScopeChannel, channelId, true, nil
	case conversationId != "":
		return types.ScopeConversation, conversationId, true, nil
	case optional:
		return "", "", false, nil
	default:
		return "", "", false, NewBadRequestError()
	}
}

func (s *NotifyApp) healthz(w http.ResponseWriter, _ *http.Request) {
	if err := s.repo.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewServiceUnavailableError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *NotifyApp) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var ev types.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.dispatcher.Dispatch(r.Context(), ev); err != nil {
		var errResp *ApiError
		if errors.Is(err, dispatch.ErrMalformedEvent) {
			errResp = NewBadRequestError()
		} else {
			// persistence failed; the producer should retry
			s.log.Println("dispatch:", err)
			errResp = NewServiceUnavailableError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusAccepted, nil)
}

func (s *NotifyApp) listNotifications(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbNotifs, err := s.repo.UnreadNotifications(userId, limit)
	if err != nil {
		s.log.Println("list notifications:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	notifs := make([]types.Notification, 0, len(dbNotifs))
	for _, n := range dbNotifs {
		notifs = append(notifs, toNotification(n))
	}

	s.writeJson(w, http.StatusOK, notifs)
}

func (s *NotifyApp) countUnread(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	scope, reference, scoped, apiErr := scopeFromQuery(r, true)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	var count int64
	var err error
	if scoped {
		count, err = s.counters.Get(r.Context(), userId, scope, reference)
	} else {
		count, err = s.counters.Total(r.Context(), userId)
	}
	if err != nil {
		s.log.Println("count unread:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, CountResponse{Count: count})
}

func (s *NotifyApp) markRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	notificationId, err := strconv.Atoi(idStr)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	notif, flipped, err := s.repo.MarkNotificationRead(userId, notificationId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	resp := MarkReadResponse{
		Flipped:   flipped,
		Scope:     notif.Type,
		Reference: notif.Reference,
	}

	if flipped {
		// adjust counters by exactly what the record flip changed
		taken, err := s.counters.Decrement(r.Context(), userId, notif.Type, notif.Reference, 1)
		if err != nil {
			s.log.Println("decrement counter:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		resp.ScopeDelta = -taken
		resp.TotalDelta = -taken
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *NotifyApp) markAllRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	scope, reference, _, apiErr := scopeFromQuery(r, false)
	if apiErr != nil {
		s.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	flipped, err := s.repo.MarkAllRead(userId, scope, reference)
	if err != nil {
		s.log.Println("mark all read:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	cleared, err := s.counters.Reset(r.Context(), userId, scope, reference)
	if err != nil {
		s.log.Println("reset counter:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, MarkAllReadResponse{
		Flipped: flipped,
		Cleared: cleared,
	})
}

func (s *NotifyApp) getWorkspaceUnread(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	workspaceId := r.URL.Query().Get("workspace_id")
	if workspaceId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbChannels, err := s.repo.UnreadChannelsForWorkspace(userId, workspaceId)
	if err != nil {
		s.log.Println("workspace unread:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	channels := make([]types.ChannelUnread, 0, len(dbChannels))
	for _, c := range dbChannels {
		channels = append(channels, types.ChannelUnread{
			ChannelId: c.ChannelId,
			Count:     c.Count,
		})
	}

	s.writeJson(w, http.StatusOK, channels)
}

func (s *NotifyApp) getPreferences(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	p, err := s.prefs.Get(userId)
	if err != nil {
		s.log.Println("get preferences:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, p)
}

func (s *NotifyApp) updatePreferences(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var params store.UpdatePreferencesParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if params.MentionsOnly == nil && params.SoundEnabled == nil && params.DesktopEnabled == nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	p, err := s.prefs.Update(userId, params)
	if err != nil {
		s.log.Println("update preferences:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, p)
}

func (s *NotifyApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	connId, err := shortid.Generate()
	if err != nil {
		s.log.Println("generate connection id:", err)
		ws.Close()
		return
	}

	conn := hub.NewConn(connId, userId, ws, s.hub, s.log)
	s.hub.Register(conn)
	go conn.WritePump()
	go conn.ReadPump()
}

func toNotification(n store.Notification) types.Notification {
	return types.Notification{
		Id:          n.Id,
		Type:        n.Type,
		Reference:   n.Reference,
		WorkspaceId: n.WorkspaceId,
		MessageId:   n.MessageId,
		Content:     n.Content,
		IsMention:   n.IsMention,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}
