package session

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parley/pkg/chat"
)

func TestTranscriptRoundTrip(t *testing.T) {
	msgs := []chat.Message{
		chat.NewMessage("c1", chat.RoleUser, "How do I iterate a map?"),
		chat.NewMessage("c1", chat.RoleAssistant, "Use range:\n\nfor k, v := range m {\n}"),
		chat.NewMessage("c1", chat.RoleUser, "Thanks!"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTranscript(&buf, msgs))

	entries, err := ParseTranscript(&buf)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		require.Equal(t, msgs[i].Role, e.Role)
		require.Equal(t, msgs[i].Content, e.Content)
	}
}

func TestParseTranscriptRejectsHeaderlessInput(t *testing.T) {
	_, err := ParseTranscript(strings.NewReader("just some prose"))
	require.Error(t, err)
}

func TestExportTranscriptRequiresBinding(t *testing.T) {
	backend := &fakeBackend{
		transcripts: map[string][]chat.Message{
			"c3": {
				chat.NewMessage("c3", chat.RoleUser, "Hello"),
				chat.NewMessage("c3", chat.RoleAssistant, "Hi there"),
			},
		},
	}
	s, _ := newTestSession(backend)

	var buf bytes.Buffer
	require.ErrorIs(t, s.ExportTranscript(context.Background(), &buf), ErrNoConversation)

	s.Bind("c3")
	require.NoError(t, s.ExportTranscript(context.Background(), &buf))
	require.Equal(t, "USER: Hello\n\nASSISTANT: Hi there", buf.String())
}
