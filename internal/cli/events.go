package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

const defaultReplyWait = 5 * time.Second

// Broadcasts that never answer a specific action
var ambientEvents = []string{
	"playerList", "chatHistory", "chatMessage", "correctGuess", "closeGuess",
	"extendVotes", "nextRoundCountdown", "autoplayChanged", "newRecord",
}

// SocketMessage is one server frame
type SocketMessage struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	LobbyCode string          `json:"lobbyCode,omitempty"`
	Timestamp int64           `json:"ts"`
}

// Err reports rejection events as errors so the command exits non-zero
func (m *SocketMessage) Err() error {
	if m.Event == "error" || strings.HasSuffix(m.Event, "Error") || strings.HasSuffix(m.Event, "InsufficientFunds") {
		var reason struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(m.Data, &reason)
		if reason.Reason == "" {
			return fmt.Errorf("%s", m.Event)
		}
		return fmt.Errorf("%s: %s", m.Event, reason.Reason)
	}
	return nil
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// session is an open socket that has received its connected frame
type session struct {
	conn *websocket.Conn
	id   string
}

func openSession(ctx context.Context) (*session, error) {
	conn, err := client.Dial(ctx)
	if err != nil {
		return nil, err
	}
	s := &session{conn: conn}

	hello, err := s.read(defaultReplyWait)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if hello.Event != "connected" {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first event %q", hello.Event)
	}
	var payload struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(hello.Data, &payload)
	s.id = payload.ID
	return s, nil
}

func (s *session) send(event string, data any) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(defaultReplyWait))
	return s.conn.WriteJSON(envelope{Event: event, Data: data})
}

// read waits up to wait for the next frame; zero waits forever
func (s *session) read(wait time.Duration) (*SocketMessage, error) {
	deadline := time.Time{}
	if wait > 0 {
		deadline = time.Now().Add(wait)
	}
	_ = s.conn.SetReadDeadline(deadline)

	var msg SocketMessage
	if err := s.conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// join enters a lobby and waits for the server to confirm
func (s *session) join(code, name string) (*SocketMessage, error) {
	if err := s.send("joinLobby", map[string]string{"code": code, "name": name}); err != nil {
		return nil, err
	}
	for {
		msg, err := s.read(defaultReplyWait)
		if err != nil {
			return nil, err
		}
		switch msg.Event {
		case "lobbyJoined":
			return msg, nil
		case "lobbyError":
			return nil, msg.Err()
		}
	}
}

func (s *session) close() {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = s.conn.Close()
}

// sendAction connects, optionally joins a lobby, sends one action and
// returns the first frame that answers it
func sendAction(ctx context.Context, action string, data any, lobby string, wait time.Duration) (*SocketMessage, error) {
	s, err := openSession(ctx)
	if err != nil {
		return nil, err
	}
	defer s.close()

	if lobby != "" {
		if _, err := s.join(lobby, ""); err != nil {
			return nil, err
		}
	}

	if err := s.send(action, data); err != nil {
		return nil, fmt.Errorf("send %s: %w", action, err)
	}
	for {
		msg, err := s.read(wait)
		if err != nil {
			return nil, fmt.Errorf("waiting for reply to %s: %w", action, err)
		}
		if !slices.Contains(ambientEvents, msg.Event) {
			return msg, nil
		}
	}
}

func newSendCmd() *cobra.Command {
	var (
		lobby string
		wait  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <action> [json-data]",
		Short: "Send one socket action and print the reply",
		Long: `Open a socket, send a single action and print the server's answer.

Examples:
  sqrrr send getBalance
  sqrrr send slotsSpin '{"bet":10}'
  sqrrr send fishingCast '{"bet":25}'
  sqrrr send wordleGuess '{"word":"crane"}'
  sqrrr send startRound --lobby VGM0`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data any
			if len(args) == 2 {
				raw := json.RawMessage(args[1])
				if !json.Valid(raw) {
					return errors.New("data must be valid JSON")
				}
				data = raw
			}

			reply, err := sendAction(cmd.Context(), args[0], data, strings.ToUpper(lobby), wait)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(*reply)
			return reply.Err()
		},
	}

	cmd.Flags().StringVar(&lobby, "lobby", "", "Join this lobby before sending")
	cmd.Flags().DurationVar(&wait, "wait", defaultReplyWait, "How long to wait for the reply")

	return cmd
}

func newEventsCmd() *cobra.Command {
	var (
		name       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "events [code]",
		Short: "Join a lobby and stream its events",
		Long: `Join a lobby (the shared lobby when no code is given) and print every
event the server sends, such as playerList, roundStart, correctGuess,
closeGuess, roundEnd and chatMessage.

Press Ctrl+C to disconnect.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := ""
			if len(args) == 1 {
				code = strings.ToUpper(args[0])
			}
			return streamEvents(code, name, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name in the lobby")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

func streamEvents(code, name string, jsonOutput bool) error {
	// Handle interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	joined, err := s.join(code, name)
	if err != nil {
		return err
	}
	if !jsonOutput {
		var lobby struct {
			Code string `json:"code"`
		}
		_ = json.Unmarshal(joined.Data, &lobby)
		fmt.Printf("Connected to lobby %s as %s\n", lobby.Code, s.id)
	}
	printEvent(joined, jsonOutput)

	// Closing the connection unblocks the read loop on Ctrl+C
	go func() {
		<-ctx.Done()
		s.close()
	}()

	for {
		msg, err := s.read(0)
		if err != nil {
			// Context cancellation is expected
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		printEvent(msg, jsonOutput)
	}
}

func printEvent(msg *SocketMessage, jsonOutput bool) {
	if jsonOutput {
		jsonData, _ := json.Marshal(msg)
		fmt.Println(string(jsonData))
		return
	}

	timestamp := time.UnixMilli(msg.Timestamp).Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := string(msg.Data)
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", timestamp, msg.Event, displayData)
}
