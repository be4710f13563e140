// Package dispatch turns inbound message events into unread counters,
// persisted notifications and best-effort pushes to live connections.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/supchat-io/notifyhub/internal/counter"
	"github.com/supchat-io/notifyhub/internal/hub"
	"github.com/supchat-io/notifyhub/internal/prefs"
	"github.com/supchat-io/notifyhub/internal/stats"
	"github.com/supchat-io/notifyhub/internal/store"
	"github.com/supchat-io/notifyhub/internal/types"
)

// ErrMalformedEvent marks events dropped during validation. The
// underlying message write has already been accepted, so this is never
// surfaced as a user-facing failure.
var ErrMalformedEvent = errors.New("malformed event")

// snippetLen bounds the content snippet carried by notification
// records and push payloads.
const snippetLen = 120

type Dispatcher struct {
	log      *log.Logger
	repo     store.NotifyRepository
	counters counter.Store
	hub      *hub.Hub
	prefs    *prefs.Service
	stats    stats.StatsProvider

	events chan types.Event
	stop   chan struct{}
	done   chan struct{}
}

func NewDispatcher(logger *log.Logger, repo store.NotifyRepository, counters counter.Store,
	h *hub.Hub, prefsSvc *prefs.Service, su stats.StatsProvider, queueSize int) *Dispatcher {
	su.RegisterMetric(stats.EventsDispatched)
	su.RegisterMetric(stats.NotificationsCreated)
	su.RegisterMetric(stats.MalformedEvents)

	return &Dispatcher{
		log:      logger,
		repo:     repo,
		counters: counters,
		hub:      h,
		prefs:    prefsSvc,
		stats:    su,
		events:   make(chan types.Event, queueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Enqueue places an event on the inbound queue without blocking. A
// false return means the queue is full and the producer should retry.
func (d *Dispatcher) Enqueue(ev types.Event) bool {
	select {
	case d.events <- ev:
		return true
	default:
		d.log.Println("event queue full, rejecting event for message", ev.MessageId)
		return false
	}
}

// Run consumes the inbound queue until Shutdown is called. Dispatch
// failures on this path are logged; producers that need the error use
// Dispatch directly.
func (d *Dispatcher) Run() {
	defer close(d.done)
	for {
		select {
		case ev := <-d.events:
			if err := d.Dispatch(context.Background(), ev); err != nil && !errors.Is(err, ErrMalformedEvent) {
				d.log.Println("dispatch:", err)
			}
		case <-d.stop:
			return
		}
	}
}

func (d *Dispatcher) Shutdown() {
	close(d.stop)
	<-d.done
}

// Dispatch runs one event through the pipeline. Persistence and
// counter failures are returned and are retryable by the caller;
// push delivery failures are swallowed because clients recover missed
// pushes through the reconciliation API.
func (d *Dispatcher) Dispatch(ctx context.Context, ev types.Event) error {
	if err := validate(ev); err != nil {
		d.stats.Incr(stats.MalformedEvents)
		d.log.Printf("dropping malformed event (message %q): %v", ev.MessageId, err)
		return err
	}

	recipients, err := d.resolveRecipients(ev)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}
	mentioned := mentionSet(ev.Mentions, recipients)

	if ev.Type.Counts() {
		if err := d.persistAndCount(ctx, ev, recipients, mentioned); err != nil {
			return err
		}
	}

	d.fanOut(ev, recipients, mentioned)
	d.stats.Incr(stats.EventsDispatched)

	return nil
}

func validate(ev types.Event) error {
	if !ev.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
	if !ev.Scope.Valid() {
		return fmt.Errorf("%w: unknown scope %q", ErrMalformedEvent, ev.Scope)
	}
	if ev.ScopeId == "" || ev.MessageId == "" || ev.SenderId == "" {
		return fmt.Errorf("%w: missing required field", ErrMalformedEvent)
	}
	return nil
}

// resolveRecipients returns every participant of the event's target
// except the author.
func (d *Dispatcher) resolveRecipients(ev types.Event) ([]string, error) {
	var members []string
	var err error
	switch ev.Scope {
	case types.ScopeChannel:
		members, err = d.repo.ChannelMembers(ev.ScopeId)
	case types.ScopeConversation:
		members, err = d.repo.ConversationParticipants(ev.ScopeId)
	}
	if err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, id := range members {
		if id == ev.SenderId {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	return recipients, nil
}

// mentionSet intersects the event's mention list with the resolved
// recipients. Mentions of non-participants are dropped silently so no
// notification leaks to users without access.
func mentionSet(mentions, recipients []string) map[string]struct{} {
	if len(mentions) == 0 {
		return nil
	}

	valid := make(map[string]struct{}, len(recipients))
	for _, id := range recipients {
		valid[id] = struct{}{}
	}

	set := make(map[string]struct{}, len(mentions))
	for _, id := range mentions {
		if _, ok := valid[id]; ok {
			set[id] = struct{}{}
		}
	}

	return set
}

func (d *Dispatcher) persistAndCount(ctx context.Context, ev types.Event, recipients []string, mentioned map[string]struct{}) error {
	snippet := truncate(ev.Content, snippetLen)

	for _, userId := range recipients {
		_, isMention := mentioned[userId]
		if _, err := d.repo.CreateNotification(store.CreateNotificationParams{
			UserId:      userId,
			Type:        ev.Scope,
			Reference:   ev.ScopeId,
			WorkspaceId: ev.WorkspaceId,
			MessageId:   ev.MessageId,
			Content:     snippet,
			IsMention:   isMention,
			CreatedAt:   ev.Timestamp,
		}); err != nil {
			return fmt.Errorf("create notification for user %q: %w", userId, err)
		}

		if err := d.counters.Increment(ctx, userId, ev.Scope, ev.ScopeId, 1); err != nil {
			return fmt.Errorf("increment counter for user %q: %w", userId, err)
		}

		d.stats.Incr(stats.NotificationsCreated)
	}

	return nil
}

// fanOut pushes the event to every live connection of every recipient,
// subject to the preference gate. Sends are queued per connection and
// never block; failures are logged by the hub and recovered through
// reconciliation.
func (d *Dispatcher) fanOut(ev types.Event, recipients []string, mentioned map[string]struct{}) {
	for _, userId := range recipients {
		conns := d.hub.ConnectionsFor(userId)
		if len(conns) == 0 {
			continue
		}

		_, isMention := mentioned[userId]
		pref, err := d.prefs.Get(userId)
		if err != nil {
			// Gate on defaults rather than dropping the push.
			d.log.Printf("preferences for user %q: %v", userId, err)
			pref = types.Preferences{SoundEnabled: true, DesktopEnabled: true}
		}

		if pref.MentionsOnly && !isMention {
			continue
		}

		payload := &types.PushPayload{
			EventType:   ev.Type,
			Scope:       ev.Scope,
			ScopeId:     ev.ScopeId,
			WorkspaceId: ev.WorkspaceId,
			MessageId:   ev.MessageId,
			Content:     truncate(ev.Content, snippetLen),
			IsMention:   isMention,
			Sender:      types.Sender{Id: ev.SenderId, Name: senderName(ev)},
			Timestamp:   ev.Timestamp,
			Sound:       pref.SoundEnabled,
			Desktop:     pref.DesktopEnabled,
		}

		for _, c := range conns {
			// Channel pushes go only to connections subscribed to the
			// channel's room; conversation pushes reach every device.
			if ev.Scope == types.ScopeChannel && !d.hub.InRoom(c.Id(), types.ChannelRoom(ev.ScopeId)) {
				continue
			}
			d.hub.Send(c.Id(), hub.PushMessage(payload))
		}
	}
}

func senderName(ev types.Event) string {
	if ev.SenderName != "" {
		return ev.SenderName
	}
	return ev.SenderId
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
