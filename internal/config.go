package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host       string `env:"HOST,default=0.0.0.0"`
	Port       int    `env:"PORT,default=8080"`
	HealthPort int    `env:"HEALTH_PORT,default=0"`
	LogLevel   string `env:"LOG_LEVEL,default=INFO"`

	BufferSize            int `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize  int `env:"CONNECTION_BUFFER_SIZE,default=256"`
	SlowConsumerDropLimit int `env:"SLOW_CONSUMER_DROP_LIMIT,default=32"`
	MaxContentLength      int `env:"MAX_CONTENT_LENGTH,default=2000"`

	MaxFrameSize    int64         `env:"MAX_FRAME_SIZE,default=65536"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout     time.Duration `env:"PONG_TIMEOUT,default=60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`

	JournalFilepath string `env:"JOURNAL_FILEPATH"`
	JournalLimit    int    `env:"JOURNAL_LIMIT,default=200"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CensoredDir     string `env:"CENSORED_DIR"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	OtelEndpoint   string `env:"OTEL_ENDPOINT"`
	ServiceName    string `env:"SERVICE_NAME,default=chat-relay"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	return lo.FilterMap(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) (string, bool) {
		o = strings.TrimSpace(o)
		return o, o != ""
	})
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
