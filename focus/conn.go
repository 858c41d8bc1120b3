package focus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Conn speaks the Focus protocol over a serial link.
// The link itself (USB CDC-ACM, a TCP bridge, a test double) is supplied by the
// caller as an io.ReadWriter.
//
// Conn is safe for concurrent use; commands are sent one at a time.
type Conn struct {
	mu      sync.Mutex
	rw      io.ReadWriter
	r       *bufio.Reader
	limiter *rate.Limiter
	config  Config
}

// Config holds the connection configuration.
type Config struct {
	// Logger is used for logging traffic (optional)
	Logger Logger

	// CommandInterval is the minimum spacing between two commands.
	// Some firmware revisions drop input when commands arrive back to back.
	CommandInterval time.Duration
}

// Option is a functional option for configuring a Conn.
type Option func(*Config)

// WithLogger sets a logger for protocol traffic.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithCommandInterval sets the minimum delay between consecutive commands.
//
// Example:
//
//	conn := focus.NewConn(port, focus.WithCommandInterval(10*time.Millisecond))
func WithCommandInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.CommandInterval = d
		}
	}
}

// NewConn creates a Conn on top of rw.
func NewConn(rw io.ReadWriter, opts ...Option) *Conn {
	if rw == nil {
		panic("focus: link cannot be nil")
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	limit := rate.Inf
	if cfg.CommandInterval > 0 {
		limit = rate.Every(cfg.CommandInterval)
	}

	return &Conn{
		rw:      rw,
		r:       bufio.NewReader(rw),
		limiter: rate.NewLimiter(limit, 1),
		config:  cfg,
	}
}

// Command sends line and returns the response body.
// A response whose first line starts with "error" is returned as a *ProtocolError.
func (c *Conn) Command(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ErrEmptyCommand
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait to send %q: %w", line, err)
	}

	c.logDebug("sending command", "command", line)

	if _, err := io.WriteString(c.rw, line+"\n"); err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}

	resp, err := c.readResponse()
	if err != nil {
		return "", fmt.Errorf("read response to %q: %w", line, err)
	}

	if msg, ok := strings.CutPrefix(resp, "error"); ok {
		return "", &ProtocolError{
			Command: line,
			Message: strings.TrimSpace(strings.TrimPrefix(msg, ":")),
		}
	}

	c.logDebug("received response", "command", line, "bytes", len(resp))
	return resp, nil
}

// readResponse collects lines until the terminator line. Blank lines around the
// body are dropped; firmware emits one before the terminator after a write.
func (c *Conn) readResponse() (string, error) {
	var lines []string
	for {
		raw, err := c.r.ReadString('\n')
		text := strings.TrimRight(raw, "\r\n")
		if text == ResponseTerminator {
			return strings.TrimSpace(strings.Join(lines, "\n")), nil
		}
		if err != nil {
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		lines = append(lines, text)
	}
}

// logDebug logs a debug message if a logger is configured.
func (c *Conn) logDebug(msg string, keysAndValues ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, keysAndValues...)
	}
}
