package api

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/parley/pkg/chat"
)

type conversationListEnvelope struct {
	Data []chat.Conversation `json:"data"`
}

// ListConversations fetches the conversation summaries for an identity,
// used to bootstrap the registry on startup.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	var env conversationListEnvelope
	if err := c.getJSON(ctx, "/chat/list?userId="+url.QueryEscape(userID), &env); err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	return env.Data, nil
}

type CreateRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Model  string `json:"model,omitempty"`
}

type conversationEnvelope struct {
	Data chat.Conversation `json:"data"`
}

// CreateConversation persists a new thread and returns the created
// summary. A 2xx response without an id is treated as a failure, the
// caller must never proceed to send against a nonexistent conversation.
func (c *Client) CreateConversation(ctx context.Context, req CreateRequest) (chat.Conversation, error) {
	var env conversationEnvelope
	if err := c.postJSON(ctx, "/chat/create", req, &env); err != nil {
		return chat.Conversation{}, errors.Wrap(err, "create conversation")
	}
	if env.Data.ID == "" {
		return chat.Conversation{}, errors.New("create conversation: backend returned no id")
	}
	return env.Data, nil
}

type SaveRequest struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId,omitempty"`
	Role           chat.Role `json:"role"`
	Content        string    `json:"content"`
	Model          string    `json:"model,omitempty"`
}

// SaveMessage persists one message. Callers treat this as fire-and-forget;
// the write is an idempotent upsert on the backend side.
func (c *Client) SaveMessage(ctx context.Context, req SaveRequest) error {
	if err := c.postJSON(ctx, "/chat/save", req, nil); err != nil {
		return errors.Wrap(err, "save message")
	}
	return nil
}

type CompleteRequest struct {
	UserID       string                         `json:"userId"`
	Model        string                         `json:"model"`
	UserMessages []openai.ChatCompletionMessage `json:"userMessages"`
}

// CompletionChoice carries either the chat shape (message.content) or the
// legacy shape (text), depending on which provider the backend proxied.
type CompletionChoice struct {
	Message openai.ChatCompletionMessage `json:"message"`
	Text    string                       `json:"text"`
}

type ProviderResponse struct {
	Choices []CompletionChoice `json:"choices"`
}

type CompleteResponse struct {
	ProviderResp ProviderResponse `json:"providerResp"`
}

// replyFallback stands in when the provider response carries neither
// shape; the exchange still resolves instead of failing.
const replyFallback = "…"

// Reply extracts the completion text, preferring message.content over
// text, falling back to an ellipsis placeholder.
func (r *CompleteResponse) Reply() string {
	if len(r.ProviderResp.Choices) == 0 {
		return replyFallback
	}
	choice := r.ProviderResp.Choices[0]
	if choice.Message.Content != "" {
		return choice.Message.Content
	}
	if choice.Text != "" {
		return choice.Text
	}
	return replyFallback
}

// Complete runs one completion round trip with the ordered history for a
// single conversation.
func (c *Client) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	var resp CompleteResponse
	if err := c.postJSON(ctx, "/chat/search", req, &resp); err != nil {
		return nil, errors.Wrap(err, "complete")
	}
	return &resp, nil
}

type messagesEnvelope struct {
	Data []chat.Message `json:"data"`
}

// Messages fetches the persisted transcript of one conversation.
func (c *Client) Messages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var env messagesEnvelope
	if err := c.getJSON(ctx, "/chat/"+url.PathEscape(conversationID), &env); err != nil {
		return nil, errors.Wrap(err, "fetch messages")
	}
	return env.Data, nil
}

type deleteRequest struct {
	ConversationID string `json:"conversationId"`
}

func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := c.postJSON(ctx, "/chat/delete", deleteRequest{ConversationID: conversationID}, nil); err != nil {
		return errors.Wrap(err, "delete conversation")
	}
	return nil
}

type modelsEnvelope struct {
	Data []chat.ModelOption `json:"data"`
}

func (c *Client) Models(ctx context.Context) ([]chat.ModelOption, error) {
	var env modelsEnvelope
	if err := c.getJSON(ctx, "/chat/models", &env); err != nil {
		return nil, errors.Wrap(err, "fetch models")
	}
	return env.Data, nil
}
