package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	ws "github.com/satriahrh/synapse/adapters/websocket"
)

var (
	watchURL   string
	watchToken string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live feed of answered chat turns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchToken == "" {
			return errors.New("an access token is required: pass --token or set SYNAPSE_TOKEN")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		u, err := url.Parse(watchURL)
		if err != nil {
			return fmt.Errorf("invalid feed url: %w", err)
		}
		header := http.Header{}
		header.Set("Authorization", "Bearer "+watchToken)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", u, err)
		}
		defer conn.Close()

		go func() {
			<-ctx.Done()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		}()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", u)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return err
			}
			var msg ws.FeedMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				fmt.Fprintf(out, "%s\n", data)
				continue
			}
			for _, turn := range msg.Turns {
				fmt.Fprintf(out, "[session %d] %s: %s\n", msg.SessionID, turn.Role, turn.Content)
			}
		}
	},
}
