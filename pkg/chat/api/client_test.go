package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/profile"
)

func TestCompleteChatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/search", r.URL.Path)

		var req CompleteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "u1", req.UserID)
		require.Len(t, req.UserMessages, 1)
		require.Equal(t, "Hello", req.UserMessages[0].Content)

		_, _ = w.Write([]byte(`{"providerResp":{"choices":[{"message":{"role":"assistant","content":"Hi there"}}]}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.Complete(context.Background(), CompleteRequest{
		UserID: "u1",
		Model:  "m1",
		UserMessages: []openai.ChatCompletionMessage{
			{Role: "user", Content: "Hello"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Hi there", resp.Reply())
}

func TestCompleteLegacyTextShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"providerResp":{"choices":[{"text":"plain completion"}]}}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Complete(context.Background(), CompleteRequest{})
	require.NoError(t, err)
	require.Equal(t, "plain completion", resp.Reply())
}

func TestCompleteFallsBackToEllipsis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"providerResp":{"choices":[{}]}}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Complete(context.Background(), CompleteRequest{})
	require.NoError(t, err)
	require.Equal(t, "…", resp.Reply())

	require.Equal(t, "…", (&CompleteResponse{}).Reply())
}

func TestCreateConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/create", r.URL.Path)

		var req CreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "New Thread", req.Title)

		_, _ = w.Write([]byte(`{"data":{"id":"c1","title":"New Thread","user_id":"u1","created_at":"2025-06-01T12:00:00Z"}}`))
	}))
	defer srv.Close()

	conv, err := NewClient(srv.URL).CreateConversation(context.Background(), CreateRequest{
		UserID: "u1",
		Title:  "New Thread",
	})
	require.NoError(t, err)
	require.Equal(t, "c1", conv.ID)
	require.Equal(t, "New Thread", conv.Title)
}

func TestCreateConversationRejectsMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateConversation(context.Background(), CreateRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no id")
}

func TestListConversations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/list", r.URL.Path)
		require.Equal(t, "u1", r.URL.Query().Get("userId"))

		_, _ = w.Write([]byte(`{"data":[
			{"id":"c1","title":"First","created_at":"2025-06-01T12:00:00Z"},
			{"id":"c2","title":"Second","created_at":"2025-06-02T12:00:00Z","updated_at":"2025-06-03T12:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	rows, err := NewClient(srv.URL).ListConversations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "c1", rows[0].ID)
	require.NotNil(t, rows[1].UpdatedAt)
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"conversation not found"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).DeleteConversation(context.Background(), "nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "conversation not found")
}

func TestUpsertProfileMapsUniqueViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/upsert", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"23505","message":"duplicate key value violates unique constraint"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).UpsertProfile(context.Background(), profile.Profile{Username: "janedoe1"})
	require.ErrorIs(t, err, profile.ErrUsernameTaken)
}

func TestUpsertProfileSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p profile.Profile
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		require.Equal(t, "u1", p.ID)
		require.Equal(t, "janedoe1", p.Username)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).UpsertProfile(context.Background(), profile.Profile{ID: "u1", Username: "janedoe1"})
	require.NoError(t, err)
}

func TestMessagesTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/c1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[
			{"id":"11111111-1111-1111-1111-111111111111","conversation_id":"c1","role":"user","content":"Hello","created_at":"2025-06-01T12:00:00Z"},
			{"id":"22222222-2222-2222-2222-222222222222","conversation_id":"c1","role":"assistant","content":"Hi there","created_at":"2025-06-01T12:00:01Z"}
		]}`))
	}))
	defer srv.Close()

	msgs, err := NewClient(srv.URL).Messages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, chat.RoleUser, msgs[0].Role)
	require.Equal(t, "Hi there", msgs[1].Content)
}
