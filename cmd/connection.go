// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Voltlog

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voltlog/vestat/internal/logging"
	"github.com/voltlog/vestat/pkg/vedirect"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// usbPortPrefixes are the device path patterns probed when no --port is
// given: Linux USB serial adapters and macOS usbserial devices.
var usbPortPrefixes = []string{
	"/dev/ttyUSB",
	"/dev/tty.usbserial",
}

// autodetectPort returns the first enumerated serial port matching a known
// USB adapter pattern.
func autodetectPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("enumerating serial ports: %w", err)
	}
	sort.Strings(ports)

	for _, p := range ports {
		for _, prefix := range usbPortPrefixes {
			if strings.HasPrefix(p, prefix) {
				logging.Info("auto-detected serial port", zap.String("port", p))
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("no USB serial device found matching known patterns")
}

// openSerialSource opens the serial port at 8N1 with the configured read
// timeout and wraps it as a line source. The charger transmits unprompted;
// only the read side matters.
func openSerialSource(name string, baud int, timeout time.Duration) (vedirect.LineSource, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}

	return vedirect.NewReaderSource(port), nil
}

// wsByteStream adapts a WebSocket connection carrying raw serial bytes to
// the zero-read timeout convention the line source expects. A read
// deadline on a gorilla connection is terminal, which matches the decoder's
// usage: the transport is opened per refresh and a timeout ends the pass.
type wsByteStream struct {
	conn     *websocket.Conn
	timeout  time.Duration
	buf      []byte
	off      int
	timedOut bool
	closed   bool
}

func (w *wsByteStream) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}
	if w.timedOut {
		return 0, nil
	}

	// Serve buffered bytes first
	if w.off < len(w.buf) {
		n := copy(p, w.buf[w.off:])
		w.off += n
		return n, nil
	}

	for {
		_ = w.conn.SetReadDeadline(time.Now().Add(w.timeout))
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				w.timedOut = true
				return 0, nil
			}
			w.closed = true
			return 0, err
		}

		// Only binary messages carry the byte stream
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.off = 0
		n := copy(p, w.buf)
		w.off = n
		return n, nil
	}
}

func (w *wsByteStream) Close() error {
	return w.conn.Close()
}

// openWebSocketSource connects to a serial-over-WebSocket bridge with HTTP
// Basic auth and wraps it as a line source.
func openWebSocketSource(wsURL, username, password string, skipSSLVerify bool, timeout time.Duration) (vedirect.LineSource, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return vedirect.NewReaderSource(&wsByteStream{conn: conn, timeout: timeout}), nil
}

// getPassword retrieves the WebSocket password from the environment or
// prompts for it without echo.
func getPassword() (string, error) {
	if pw := os.Getenv("VESTAT_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// newDecoder builds a Device whose transport is opened fresh for each
// Refresh and closed when the pass completes, plus a human-readable
// connection description.
func newDecoder() (*vedirect.Device, string, error) {
	timeout := time.Duration(readTimeout) * time.Second

	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = getPassword()
			if err != nil {
				return nil, "", err
			}
		}

		open := func() (vedirect.LineSource, error) {
			return openWebSocketSource(wsURL, wsUsername, password, wsNoSSLVerify, timeout)
		}
		return vedirect.NewDevice(open), fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	name := portName
	if name == "" {
		var err error
		name, err = autodetectPort()
		if err != nil {
			return nil, "", err
		}
	}

	open := func() (vedirect.LineSource, error) {
		return openSerialSource(name, baudRate, timeout)
	}
	return vedirect.NewDevice(open), fmt.Sprintf("Serial: %s @ %d baud", name, baudRate), nil
}
