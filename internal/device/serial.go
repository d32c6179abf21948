// Package device talks to the LED strip controller over a serial line.
package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"golang.org/x/time/rate"
)

var ErrClosed = errors.New("device closed")

// Arduino writes command strings ("4.") to a strip controller. The controller
// reads up to the '.' terminator, so no newline is sent.
type Arduino struct {
	mu      sync.Mutex
	port    io.ReadWriteCloser
	reader  *bufio.Reader
	limiter *rate.Limiter
	closed  bool
}

// Option configures an Arduino.
type Option func(*Arduino)

// WithCommandInterval spaces consecutive writes at least d apart. Zero
// disables the limit.
func WithCommandInterval(d time.Duration) Option {
	return func(a *Arduino) {
		if d <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// New wraps an already-open port.
func New(port io.ReadWriteCloser, opts ...Option) *Arduino {
	a := &Arduino{port: port, reader: bufio.NewReader(port)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open opens name at baud 8N1 and waits settle for the board to come out of
// the reset that opening the port triggers.
func Open(name string, baud int, settle time.Duration, opts ...Option) (*Arduino, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("serial port name is empty")
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	log.Info().Str("port", name).Int("baud", baud).Dur("settle", settle).Msg("Serial port opened")
	if settle > 0 {
		time.Sleep(settle)
	}
	return New(port, opts...), nil
}

// Ports lists the serial ports present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func (a *Arduino) Send(ctx context.Context, command string) error {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(a.port, command); err != nil {
		return fmt.Errorf("serial write %q: %w", command, err)
	}
	log.Debug().Str("command", command).Msg("Command sent")
	return nil
}

// Receive reads one line from the controller with the line ending trimmed.
func (a *Arduino) Receive() (string, error) {
	line, err := a.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *Arduino) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.port.Close()
}
