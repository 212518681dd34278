// chat-client is the terminal client for the realtime chat server.
package main

import (
	"fmt"
	"os"

	"realtime_chat/internal/client"
	"realtime_chat/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var serverURL, sessionPath string
	var signOut bool

	flagSet := pflag.NewFlagSet("chat-client", pflag.ContinueOnError)
	flagSet.StringVarP(&serverURL, "server", "s", envOr("CHAT_SERVER", "http://localhost:3000"), "chat server base URL")
	flagSet.StringVar(&sessionPath, "session-file", "", "where the session is kept (default: <user config dir>/realtime-chat/session.yaml)")
	flagSet.BoolVar(&signOut, "sign-out", false, "forget the saved session and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if sessionPath == "" {
		path, err := client.DefaultStorePath()
		if err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
		sessionPath = path
	}
	session := client.NewSessionManager(client.NewFileStore(sessionPath))
	if signOut {
		return session.SignOut()
	}

	chat, err := client.NewChatView(serverURL)
	if err != nil {
		return err
	}
	defer chat.Close()

	program := tea.NewProgram(tui.NewModel(client.NewAPI(serverURL), chat, session), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
