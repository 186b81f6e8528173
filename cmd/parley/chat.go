package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/parley/pkg/chat"
	chatsync "github.com/go-go-golems/parley/pkg/chat/sync"

	"github.com/go-go-golems/parley/pkg/chat/registry"
	"github.com/go-go-golems/parley/pkg/chat/session"
	"github.com/go-go-golems/parley/pkg/helpers"
	"github.com/go-go-golems/parley/pkg/identity"
	"github.com/go-go-golems/parley/pkg/profile"
)

// consoleNotifier prints transient notices to stderr, the CLI stand-in
// for a toast.
type consoleNotifier struct{}

func (consoleNotifier) Notify(text string) {
	fmt.Fprintln(os.Stderr, "! "+text)
}

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			return runChat(cmd.Context(), identity.Identity{
				ID:          userID,
				DisplayName: name,
				Email:       email,
			})
		},
	}
	cmd.Flags().String("user", "", "Identity id to chat as")
	cmd.Flags().String("name", "", "Display name of the identity")
	cmd.Flags().String("email", "", "Email of the identity")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runChat(ctx context.Context, id identity.Identity) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	provider := identity.NewStaticProvider(&id)
	defer func() { _ = provider.Close() }()

	client := newClient()

	// best-effort: sign-in proceeds without a username on failure
	if _, err := profile.Bootstrap(ctx, client, id); err != nil {
		log.Warn().Err(err).Msg("continuing without username")
	}

	reg := registry.New()
	convs, err := client.ListConversations(ctx, id.ID)
	if err != nil {
		return err
	}
	reg.Replace(convs)

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, helpers.NewWatermill(log.Logger))
	adapter, err := chatsync.NewAdapter(pubsub, reg, id.ID)
	if err != nil {
		return err
	}

	coordinator := session.NewCoordinator(client, reg, id)
	s := session.NewSession(client, coordinator, reg, id,
		session.WithModel(viper.GetString("model")),
		session.WithNotifier(consoleNotifier{}),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return adapter.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return chatLoop(ctx, s, reg)
	})
	return g.Wait()
}

func chatLoop(ctx context.Context, s *session.Session, reg *registry.Registry) error {
	fmt.Println("parley: type a message, or /list /open /delete /export /models /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runLocalCommand(ctx, s, reg, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := s.Send(ctx, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		msgs := s.Messages()
		if len(msgs) > 0 {
			fmt.Println(msgs[len(msgs)-1].Content)
		}
	}
}

func runLocalCommand(ctx context.Context, s *session.Session, reg *registry.Registry, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit":
		return true, nil

	case "/list":
		printConversations(reg.Snapshot(), s.ConversationID())
		return false, nil

	case "/open":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /open <conversation-id>")
		}
		s.Bind(args[0])
		return false, s.Load(ctx)

	case "/delete":
		if len(args) == 0 {
			return false, s.Delete(ctx)
		}
		return false, s.DeleteConversation(ctx, args[0])

	case "/export":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /export <file>")
		}
		return false, exportToFile(ctx, s, args[0])

	case "/models":
		models, err := s.Models(ctx)
		if err != nil {
			return false, err
		}
		printModels(models, s.Model())
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s", cmd)
	}
}

func exportToFile(ctx context.Context, s *session.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return s.ExportTranscript(ctx, f)
}

func printConversations(convs []chat.Conversation, boundID string) {
	for _, c := range convs {
		marker := " "
		if c.ID == boundID {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  (%s)\n", marker, c.ID, c.Title, c.ActivityTime().Format("2006-01-02 15:04"))
	}
}

func printModels(models []chat.ModelOption, selected string) {
	for _, m := range models {
		marker := " "
		if m.ID == selected {
			marker = "*"
		}
		availability := ""
		if !m.Available {
			availability = "  (unavailable)"
		}
		fmt.Printf("%s %s  %s%s\n", marker, m.ID, m.Name, availability)
	}
}
