package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/gookit/color"
	gorilla "github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Username      string `env:"CHAT_USERNAME,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the relay, prints what it receives and turns stdin lines into envelopes:
// "/create <name>", "/join <room id>", "/leave [room id]", anything else is chat.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := url.URL{Scheme: "ws", Host: config.ServerAddress, Path: "/ws"}
	conn, _, err := gorilla.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to relay at %s: %w", u.String(), err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""))
		_ = conn.Close()
	}()
	color.Green.Printf(">>> Connected to %s as %s (Ctrl+C to quit)\n", u.String(), config.Username)

	session := &session{username: config.Username}
	received := make(chan error, 1)
	go func() { received <- session.receive(conn, os.Stdout) }()

	lines := make(chan string)
	go scanLines(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case err := <-received:
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			frame, err := session.envelope(line, time.Now().UTC())
			if err != nil {
				color.Yellow.Println(err.Error())
				continue
			}
			if frame == nil {
				continue
			}
			if err := conn.WriteMessage(gorilla.TextMessage, frame); err != nil {
				return exitRuntime, fmt.Errorf("send failed: %w", err)
			}
		}
	}
}

func scanLines(r io.Reader, lines chan<- string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	close(lines)
}

// session remembers the room the user is in so /leave and chat need no room id.
type session struct {
	username string
	room     string
}

type inbound struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func (s *session) envelope(line string, now time.Time) ([]byte, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var kind string
	var payload map[string]any
	switch command {
	case "/create":
		if arg == "" {
			return nil, fmt.Errorf("usage: /create <room name>")
		}
		kind, payload = "create-room", map[string]any{"username": s.username, "roomName": arg}
	case "/join":
		if arg == "" {
			return nil, fmt.Errorf("usage: /join <room id>")
		}
		kind, payload = "join-room", map[string]any{"username": s.username, "roomId": arg}
	case "/leave":
		room := arg
		if room == "" {
			room = s.room
		}
		if room == "" {
			return nil, fmt.Errorf("not in a room")
		}
		kind, payload = "leave-room", map[string]any{"username": s.username, "roomId": room}
	default:
		kind, payload = "chat", map[string]any{
			"id":        uuid.NewString(),
			"content":   line,
			"timestamp": now.Format(time.RFC3339Nano),
			"username":  s.username,
		}
	}
	return json.Marshal(map[string]any{"type": kind, "payload": payload})
}

func (s *session) receive(conn *gorilla.Conn, out io.Writer) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		fmt.Fprintln(out, s.render(msg))
	}
}

func (s *session) render(msg inbound) string {
	field := func(name string) string {
		v, _ := msg.Payload[name].(string)
		return v
	}
	switch msg.Type {
	case "room-created":
		s.room = field("roomId")
		return color.Green.Sprintf("* room %q created, id %s", field("roomName"), field("roomId"))
	case "user-joined":
		if field("username") == s.username {
			s.room = field("roomId")
		}
		return color.Cyan.Sprintf("* %s", field("message"))
	case "user-left":
		if field("username") == s.username && field("roomId") == s.room {
			s.room = ""
		}
		return color.Cyan.Sprintf("* %s", field("message"))
	case "chat":
		at := field("timestamp")
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			at = t.Local().Format(time.TimeOnly)
		}
		return fmt.Sprintf("[%s] %s: %s", at, color.Bold.Sprint(field("username")), field("content"))
	case "error":
		return color.Red.Sprintf("! %s", field("message"))
	default:
		return msg.Type
	}
}
