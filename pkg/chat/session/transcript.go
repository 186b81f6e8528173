package session

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/parley/pkg/chat"
)

// TranscriptEntry is one role/content pair of an exported transcript.
type TranscriptEntry struct {
	Role    chat.Role
	Content string
}

// ExportTranscript fetches the persisted transcript of the bound
// conversation and writes it as plain text.
func (s *Session) ExportTranscript(ctx context.Context, w io.Writer) error {
	cid := s.ConversationID()
	if cid == "" {
		return ErrNoConversation
	}

	msgs, err := s.backend.Messages(ctx, cid)
	if err != nil {
		return errors.Wrap(err, "export transcript")
	}

	return WriteTranscript(w, msgs)
}

// WriteTranscript renders messages as "ROLE: content" blocks separated by
// blank lines, the format ParseTranscript reads back.
func WriteTranscript(w io.Writer, msgs []chat.Message) error {
	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		blocks = append(blocks, strings.ToUpper(string(m.Role))+": "+m.Content)
	}

	_, err := io.WriteString(w, strings.Join(blocks, "\n\n"))
	return errors.Wrap(err, "write transcript")
}

// ParseTranscript reads a transcript produced by WriteTranscript back
// into role/content pairs. Content may span multiple lines; a line
// starting with a known role marker begins the next entry.
func ParseTranscript(r io.Reader) ([]TranscriptEntry, error) {
	var entries []TranscriptEntry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if role, content, ok := splitRoleLine(line); ok {
			finishEntry(entries)
			entries = append(entries, TranscriptEntry{Role: role, Content: content})
			continue
		}

		if len(entries) == 0 {
			return nil, errors.Errorf("transcript does not start with a role marker: %q", line)
		}
		entries[len(entries)-1].Content += "\n" + line
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read transcript")
	}

	finishEntry(entries)
	return entries, nil
}

// finishEntry strips the single trailing blank separator line accumulated
// into the previous entry's content.
func finishEntry(entries []TranscriptEntry) {
	if len(entries) == 0 {
		return
	}
	last := &entries[len(entries)-1]
	last.Content = strings.TrimSuffix(last.Content, "\n")
}

func splitRoleLine(line string) (chat.Role, string, bool) {
	for _, role := range []chat.Role{chat.RoleUser, chat.RoleAssistant, chat.RoleSystem} {
		marker := strings.ToUpper(string(role)) + ": "
		if strings.HasPrefix(line, marker) {
			return role, strings.TrimPrefix(line, marker), true
		}
	}
	return "", "", false
}
