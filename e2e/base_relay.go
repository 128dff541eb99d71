package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/gookit/color"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// Frame is an envelope as seen by a client.
type Frame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// SetupSuite loads the environment configuration and skips when no relay is reachable.
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, skipping end to end scenarios")
	}
}

func (s *BaseRelaySuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// Client is one WebSocket connection to the relay with frame logging.
type Client struct {
	s    *BaseRelaySuite
	name string
	conn *gorilla.Conn
}

// Dial opens a WebSocket connection on /ws.
func (s *BaseRelaySuite) Dial(name string) *Client {
	s.header(s.T(), "connect "+name)
	u := url.URL{Scheme: "ws", Host: s.Config.RelayAddr, Path: "/ws"}
	conn, _, err := gorilla.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to connect to relay at "+u.String())
	return &Client{s: s, name: name, conn: conn}
}

func (c *Client) Send(kind string, payload any) {
	frame, err := json.Marshal(map[string]any{"type": kind, "payload": payload})
	c.s.Require().NoError(err)
	if c.s.Config.DebugJSON {
		c.s.T().Logf("%s >>> %s", c.name, frame)
	}
	c.s.Require().NoError(c.conn.WriteMessage(gorilla.TextMessage, frame))
}

// Expect reads the next frame and checks its type.
func (c *Client) Expect(kind string) Frame {
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := c.conn.ReadMessage()
	c.s.Require().NoError(err, "%s expected %s", c.name, kind)
	if c.s.Config.DebugJSON {
		c.s.T().Logf("%s <<< %s", c.name, raw)
	}
	var f Frame
	c.s.Require().NoError(json.Unmarshal(raw, &f))
	c.s.Require().Equal(kind, f.Type, "%s received %s", c.name, raw)
	return f
}

func (c *Client) Close() {
	_ = c.conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""))
	_ = c.conn.Close()
}

// WithHealth provides a gRPC health client when HEALTH_ADDR is set.
func (s *BaseRelaySuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	if s.Config.HealthAddr == "" {
		s.T().Log("HEALTH_ADDR not set, skipping health check")
		return
	}
	s.header(s.T(), name)
	conn, err := grpc.NewClient(s.Config.HealthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, healthpb.NewHealthClient(conn))
}
