package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/parley/pkg/chat/session"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations of an identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			convs, err := newClient().ListConversations(cmd.Context(), userID)
			if err != nil {
				return err
			}
			printConversations(convs, "")
			return nil
		},
	}
	cmd.Flags().String("user", "", "Identity id to list conversations for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Print the model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := newClient().Models(cmd.Context())
			if err != nil {
				return err
			}
			printModels(models, "")
			return nil
		},
	}
}

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <conversation-id>",
		Short: "Write a conversation transcript as plain text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			client := newClient()
			msgs, err := client.Messages(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return session.WriteTranscript(w, msgs)
		},
	}
	cmd.Flags().String("out", "", "Output file (default stdout)")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().DeleteConversation(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	}
}
