package skill

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/dyluth/koorda/internal/bridge"
	"github.com/dyluth/koorda/internal/dialogue"
	"github.com/dyluth/koorda/internal/intent"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/google/uuid"
)

// Attribute names carried on every relayed user request, next to the
// correlation attribute.
const (
	AttributeSkillID   = "alexa_skillId"
	AttributeRequestID = "alexa_requestId"
)

// Relay sends user turns to the bot messaging endpoint.
type Relay interface {
	SendUserRequest(ctx context.Context, req koordinator.UserRequest) error
}

// BotIntentName converts a voice intent name to the bot's dotted snake case:
// "BookMeetingRoom" -> "book_meeting_room", "Room_Booking" -> "room.booking".
func BotIntentName(name string) string {
	var b strings.Builder
	for _, r := range strings.ReplaceAll(name, "_", ".") {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.ReplaceAll(strings.TrimLeft(b.String(), "_"), "._", ".")
}

// userRequest builds the bot request of a turn. event is set for lifecycle
// turns; otherwise the intent and its raw slot values are sent.
func (s *Service) userRequest(ev intent.Event, event string) koordinator.UserRequest {
	requestID := ev.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	stream := ev.DeviceID
	if stream == "" {
		stream = s.stream
	}

	req := koordinator.UserRequest{
		Stream:   stream,
		UserID:   ev.UserID,
		Language: ev.Language(),
		Attributes: map[string]string{
			AttributeSkillID:   s.skillID,
			s.correlationAttr:  ev.ConversationID,
			AttributeRequestID: requestID,
		},
		Event: event,
	}
	if event != "" {
		return req
	}

	names := make([]string, 0, len(ev.Slots))
	for name := range ev.Slots {
		names = append(names, name)
	}
	sort.Strings(names)

	entities := make([]koordinator.RequestEntity, 0, len(names))
	for _, name := range names {
		entities = append(entities, koordinator.RequestEntity{Name: name, Value: ev.Slots[name]})
	}
	req.Intent = &koordinator.RequestIntent{Name: BotIntentName(ev.Name), Entities: entities}
	return req
}

// relay forwards an intent the skill does not handle itself and speaks the
// bot's reply. A reply containing a question mark keeps the session open.
func (s *Service) relay(ctx context.Context, ev intent.Event) dialogue.Response {
	req := s.userRequest(ev, "")
	log := s.logger.With().
		Str("conversation_id", ev.ConversationID).
		Str("intent", req.Intent.Name).
		Str("request_id", req.Attributes[AttributeRequestID]).
		Logger()

	reply, err := s.bridge.Exchange(ctx, ev.ConversationID, s.replyTimeout, func(ctx context.Context) error {
		return s.relayer.SendUserRequest(ctx, req)
	})
	switch {
	case errors.Is(err, bridge.ErrTimeout):
		log.Warn().Str("event", "relay_timeout").Dur("timeout", s.replyTimeout).Msg("no bot reply in time")
		return dialogue.Statement(s.phrases.TryLater)
	case err != nil:
		s.metrics.RecordBackendError("relay")
		log.Error().Err(err).Str("event", "relay_failed").Msg("failed to relay user request")
		return dialogue.Statement(s.phrases.TryLater)
	}

	text := reply.Text()
	if text == "" {
		log.Warn().Str("event", "relay_empty_reply").Msg("bot reply has no text")
		return dialogue.Statement(s.phrases.TryLater)
	}
	log.Debug().Str("event", "relay_reply").Msg("bot replied")

	if strings.Contains(text, "?") {
		return dialogue.Question(text)
	}
	return dialogue.Statement(text)
}

// notifyLifecycle tells the bot a session started or stopped. Failures are
// logged only.
func (s *Service) notifyLifecycle(ctx context.Context, ev intent.Event, event string) {
	if !s.relayLifecycle {
		return
	}
	if err := s.relayer.SendUserRequest(ctx, s.userRequest(ev, event)); err != nil {
		s.logger.Warn().Err(err).
			Str("event", "lifecycle_relay_failed").
			Str("conversation_id", ev.ConversationID).
			Str("lifecycle", event).
			Msg("failed to notify bot of session lifecycle")
	}
}
