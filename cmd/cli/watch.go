package main

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/yourusername/streamsaviour-go/api/handlers"
	"github.com/yourusername/streamsaviour-go/internal/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow session progress live",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		wsURL, err := eventsURL(serverURL)
		if err != nil {
			fail(err)
		}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			fail(fmt.Errorf("failed to connect to event feed: %w", err))
		}
		defer conn.Close()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		go func() {
			<-interrupt
			conn.Close()
		}()

		var snapshot handlers.SnapshotMessage
		if err := conn.ReadJSON(&snapshot); err != nil {
			fail(err)
		}
		fmt.Printf("%d session(s), %d completed download(s)\n", len(snapshot.Sessions), len(snapshot.Downloads))
		for _, s := range snapshot.Sessions {
			fmt.Printf("%s  %-11s %s %3.0f%%  %s\n", shortID(s.ID), s.Status, progressBar(s.Progress, 20), s.Progress, truncate(s.Title, 40))
		}

		for {
			var event app.StoreEvent
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			if line := describeEvent(event); line != "" {
				fmt.Println(line)
			}
		}
	},
}

// eventsURL turns the server base URL into the event feed URL
func eventsURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/api/v1/sessions/events"
	return u.String(), nil
}

// describeEvent renders one store event as a status line
func describeEvent(event app.StoreEvent) string {
	switch event.Kind {
	case app.EventSessionUpdated:
		if event.Session == nil {
			return ""
		}
		s := event.Session
		line := fmt.Sprintf("%s  %-11s %s %3.0f%%  %s", shortID(s.ID), s.Status, progressBar(s.Progress, 20), s.Progress, formatBytes(s.DownloadedBytes))
		if s.ErrorMessage != "" {
			line += "  " + s.ErrorMessage
		}
		return line
	case app.EventSessionCompleted:
		if event.Download == nil {
			return ""
		}
		return fmt.Sprintf("%s  completed   %s (%s)", shortID(event.ID), event.Download.FileName, formatBytes(event.Download.Size))
	case app.EventSessionRemoved:
		return fmt.Sprintf("%s  removed", shortID(event.ID))
	default:
		return ""
	}
}
