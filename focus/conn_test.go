package focus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLink simulates the serial side of a keyboard.
type MockLink struct {
	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	writeErr error
}

func NewMockLink(responses ...string) *MockLink {
	l := &MockLink{
		readBuf:  new(bytes.Buffer),
		writeBuf: new(bytes.Buffer),
	}
	for _, r := range responses {
		l.readBuf.WriteString(r)
	}
	return l
}

func (m *MockLink) Read(p []byte) (int, error) {
	return m.readBuf.Read(p)
}

func (m *MockLink) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.writeBuf.Write(p)
}

// Mock logger for testing
type MockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...any) { l.debugMsgs = append(l.debugMsgs, msg) }
func (l *MockLogger) Info(msg string, kv ...any)  { l.infoMsgs = append(l.infoMsgs, msg) }
func (l *MockLogger) Error(msg string, kv ...any) { l.errorMsgs = append(l.errorMsgs, msg) }

func TestNewConnPanicsOnNilLink(t *testing.T) {
	assert.Panics(t, func() { NewConn(nil) })
}

func TestConnCommand(t *testing.T) {
	tests := []struct {
		name     string
		response string
		command  string
		want     string
		wantErr  bool
		protoErr bool
	}{
		{
			name:     "query with value",
			response: "v1.0.5\r\n.\r\n",
			command:  "version",
			want:     "v1.0.5",
		},
		{
			name:     "write acknowledged with blank line",
			response: "\r\n.\r\n",
			command:  "led.mode 0",
			want:     "",
		},
		{
			name:     "multi line body",
			response: "help\r\nversion\r\nled.mode\r\n.\r\n",
			command:  "help",
			want:     "help\nversion\nled.mode",
		},
		{
			name:     "device error",
			response: "error: unknown command\r\n.\r\n",
			command:  "bogus 1",
			wantErr:  true,
			protoErr: true,
		},
		{
			name:     "truncated response",
			response: "v1.0.5\r\n",
			command:  "version",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := NewMockLink(tt.response)
			conn := NewConn(link)

			got, err := conn.Command(context.Background(), tt.command)
			assert.Equal(t, tt.command+"\n", link.writeBuf.String())

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.protoErr, IsProtocolError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnSequentialCommands(t *testing.T) {
	link := NewMockLink("true\r\n.\r\n", "false\r\n.\r\n")
	logger := &MockLogger{}
	conn := NewConn(link, WithLogger(logger), WithCommandInterval(time.Millisecond))

	first, err := conn.Command(context.Background(), "upgrade.keyscanner.isConnected 0")
	require.NoError(t, err)
	second, err := conn.Command(context.Background(), "upgrade.keyscanner.isConnected 1")
	require.NoError(t, err)

	assert.Equal(t, "true", first)
	assert.Equal(t, "false", second)
	assert.Equal(t, "upgrade.keyscanner.isConnected 0\nupgrade.keyscanner.isConnected 1\n", link.writeBuf.String())
	assert.NotEmpty(t, logger.debugMsgs)
}

func TestConnEmptyCommand(t *testing.T) {
	conn := NewConn(NewMockLink())
	_, err := conn.Command(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestConnWriteError(t *testing.T) {
	link := NewMockLink()
	link.writeErr = errors.New("device unplugged")
	conn := NewConn(link)

	_, err := conn.Command(context.Background(), "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device unplugged")
}

func TestConnCancelledContext(t *testing.T) {
	link := NewMockLink("v1\r\n.\r\n")
	conn := NewConn(link, WithCommandInterval(time.Hour))

	// The first command consumes the limiter's only token.
	_, err := conn.Command(context.Background(), "version")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = conn.Command(ctx, "version")
	require.Error(t, err)
	assert.Equal(t, "version\n", link.writeBuf.String())
}

func TestProtocolError(t *testing.T) {
	err := &ProtocolError{Command: "led.mode 99", Message: "out of range"}
	assert.Equal(t, "led.mode 99 failed: out of range", err.Error())
	assert.True(t, IsProtocolError(err))
	assert.False(t, IsProtocolError(io.EOF))
}
