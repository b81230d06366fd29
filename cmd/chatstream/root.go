package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	endpoint   string
	logLevel   string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "chatstream",
		Short: "Chat with a streaming agent endpoint",
		Long: `chatstream sends your conversation to an agent endpoint and renders the
answer as it streams back, along with any tool outputs the agent reports.

Quick Start:
  chatstream chat                          # interactive session
  chatstream ask "What is my balance?"     # one-shot question
  chatstream config                        # show the effective configuration

Configuration is read from ./chatstream.yaml (or --config) and may be
overridden with CHATSTREAM_* environment variables or a .env file.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default ./chatstream.yaml)")
	pf.StringVar(&flags.endpoint, "endpoint", "", "agent stream endpoint URL")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before configuration")

	cmd.AddCommand(
		newChatCmd(flags),
		newAskCmd(flags),
		newConfigCmd(flags),
	)
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	return cmd
}
