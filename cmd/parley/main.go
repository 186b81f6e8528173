package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/parley/pkg/chat/api"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Client-side controller for a chat backend",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func initConfig() error {
	viper.SetEnvPrefix("PARLEY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
	return nil
}

func newClient() *api.Client {
	return api.NewClient(viper.GetString("backend-url"))
}

func main() {
	rootCmd.PersistentFlags().String("backend-url", "http://localhost:3000/api", "Base URL of the chat backend")
	rootCmd.PersistentFlags().String("model", "", "Model id to request completions with")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	_ = viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newChatCommand(),
		newListCommand(),
		newModelsCommand(),
		newExportCommand(),
		newDeleteCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
