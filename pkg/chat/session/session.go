package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/chat/api"
	"github.com/go-go-golems/parley/pkg/chat/registry"
	"github.com/go-go-golems/parley/pkg/identity"
)

var (
	// ErrEmptyMessage rejects whitespace-only input before any state change.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrExchangeInFlight rejects a submission while one exchange is running
	// on this session. Sessions for different conversations are independent.
	ErrExchangeInFlight = errors.New("an exchange is already in flight")
	// ErrNoConversation is returned by operations that need a bound
	// conversation id.
	ErrNoConversation = errors.New("no conversation bound")
)

const (
	titleRuneLimit = 50

	errorReply             = "Error: Could not generate response."
	noticeCompletionFailed = "AI response failed"
)

// Session owns the message list for one conversation surface and runs the
// exchange pipeline: user input becomes an optimistic user/placeholder
// pair, one completion round trip, and an in-place resolution of the
// placeholder keyed by the id captured at creation time.
//
// Which conversation the session is bound to is plain state (Bind); it is
// deliberately decoupled from any notion of navigation, so creating a
// conversation mid-exchange never disturbs already-rendered messages.
type Session struct {
	mu sync.Mutex

	backend     Backend
	coordinator *Coordinator
	registry    *registry.Registry
	user        identity.Identity
	notifier    Notifier

	conversationID string
	model          string
	messages       []chat.Message
	streaming      bool

	saves sync.WaitGroup
}

type SessionOption func(*Session)

func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) {
		s.notifier = n
	}
}

func WithModel(model string) SessionOption {
	return func(s *Session) {
		s.model = model
	}
}

func WithConversationID(id string) SessionOption {
	return func(s *Session) {
		s.conversationID = id
	}
}

func NewSession(
	backend Backend,
	coordinator *Coordinator,
	reg *registry.Registry,
	user identity.Identity,
	options ...SessionOption,
) *Session {
	ret := &Session{
		backend:     backend,
		coordinator: coordinator,
		registry:    reg,
		user:        user,
		notifier:    NopNotifier{},
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

// Bind sets the conversation the session operates on without touching the
// local message list. Callers opening an existing thread follow up with
// Load.
func (s *Session) Bind(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = conversationID
}

func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Messages returns a copy of the current message list.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message{}, s.messages...)
}

func (s *Session) SelectModel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = id
}

func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Models fetches the read-only model catalog. When no model is selected
// yet, the first catalog entry becomes the selection.
func (s *Session) Models(ctx context.Context) ([]chat.ModelOption, error) {
	models, err := s.backend.Models(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.model == "" && len(models) > 0 {
		s.model = models[0].ID
	}
	s.mu.Unlock()

	return models, nil
}

// Send runs one exchange: reject empty input, create a conversation if
// none is bound, append the user message and an assistant placeholder as
// a single update, fire a best-effort save, run the completion, and
// resolve the placeholder in place.
//
// A completion failure is recovered: the placeholder resolves to a fixed
// error text, the notifier fires, and Send returns nil with the session
// immediately usable again. Only validation and conversation-creation
// failures are returned as errors, since no message exists yet at that
// point.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return ErrExchangeInFlight
	}
	s.streaming = true
	cid := s.conversationID
	model := s.model
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()
	}()

	if cid == "" {
		newID, err := s.coordinator.CreateConversation(ctx, truncateRunes(text, titleRuneLimit), model)
		if err != nil {
			return err
		}
		// silent bind: no navigation side effect, typed state survives
		s.mu.Lock()
		s.conversationID = newID
		s.mu.Unlock()
		cid = newID
	}

	now := time.Now()
	userMsg := chat.NewMessage(cid, chat.RoleUser, text,
		chat.WithUserID(s.user.ID), chat.WithModel(model), chat.WithCreatedAt(now))
	placeholder := chat.NewMessage(cid, chat.RoleAssistant, "",
		chat.WithUserID(s.user.ID), chat.WithModel(model), chat.WithCreatedAt(now))

	s.mu.Lock()
	history := s.historyLocked(cid)
	history = append(history, openai.ChatCompletionMessage{Role: string(chat.RoleUser), Content: text})
	// the pair appears together as one update, never the user message alone
	s.messages = append(s.messages, userMsg, placeholder)
	s.mu.Unlock()

	s.saveAsync(userMsg)

	resp, err := s.backend.Complete(ctx, api.CompleteRequest{
		UserID:       s.user.ID,
		Model:        model,
		UserMessages: history,
	})
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", cid).Msg("completion request failed")
		s.resolvePlaceholder(placeholder.ID, errorReply)
		s.notifier.Notify(noticeCompletionFailed)
		return nil
	}

	final, ok := s.resolvePlaceholder(placeholder.ID, resp.Reply())
	if ok {
		s.saveAsync(final)
	}
	return nil
}

// historyLocked builds the ordered completion history for one
// conversation: prior non-system messages only, unresolved placeholders
// skipped. Messages of other conversations never leak in.
func (s *Session) historyLocked(conversationID string) []openai.ChatCompletionMessage {
	ret := make([]openai.ChatCompletionMessage, 0, len(s.messages))
	for _, m := range s.messages {
		if m.ConversationID != conversationID || m.Role == chat.RoleSystem || m.IsPlaceholder() {
			continue
		}
		ret = append(ret, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return ret
}

// resolvePlaceholder overwrites the content of the message with the given
// id, preserving the id itself. The overwrite is keyed on the id captured
// at placeholder creation, never on "the most recent placeholder", so a
// late response can never touch another exchange's message.
func (s *Session) resolvePlaceholder(id uuid.UUID, content string) (chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Content = content
			return s.messages[i], true
		}
	}

	log.Warn().Str("message_id", id.String()).Msg("placeholder vanished before resolution")
	return chat.Message{}, false
}

// saveAsync fires a best-effort persistence write. Failures are logged,
// never surfaced: the optimistic local state is authoritative for the
// session. The write deliberately outlives the caller's context; backend
// saves are idempotent upserts, so a discarded result is harmless.
func (s *Session) saveAsync(m chat.Message) {
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		err := s.backend.SaveMessage(context.Background(), api.SaveRequest{
			ConversationID: m.ConversationID,
			UserID:         m.UserID,
			Role:           m.Role,
			Content:        m.Content,
			Model:          m.ModelUsed,
		})
		if err != nil {
			log.Warn().Err(err).Str("message_id", m.ID.String()).Msg("message save failed")
		}
	}()
}

// Load replaces the local message list with the persisted transcript of
// the bound conversation.
func (s *Session) Load(ctx context.Context) error {
	cid := s.ConversationID()
	if cid == "" {
		return ErrNoConversation
	}

	msgs, err := s.backend.Messages(ctx, cid)
	if err != nil {
		return errors.Wrap(err, "load conversation")
	}

	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
	return nil
}

// Delete removes the bound conversation.
func (s *Session) Delete(ctx context.Context) error {
	cid := s.ConversationID()
	if cid == "" {
		return ErrNoConversation
	}
	return s.DeleteConversation(ctx, cid)
}

// DeleteConversation issues the backend delete and, on success, removes
// the id from the registry; if it was the bound conversation, the binding
// and the local messages are cleared. On failure the registry is left
// untouched and the user must re-trigger explicitly, there is no retry.
func (s *Session) DeleteConversation(ctx context.Context, id string) error {
	if err := s.backend.DeleteConversation(ctx, id); err != nil {
		log.Warn().Err(err).Str("conversation_id", id).Msg("delete failed")
		return errors.Wrap(err, "delete conversation")
	}

	s.registry.Remove(id)

	s.mu.Lock()
	if s.conversationID == id {
		s.conversationID = ""
		s.messages = nil
	}
	s.mu.Unlock()
	return nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
