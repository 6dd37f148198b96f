// Package nutclient speaks the upsd text protocol over TCP: GET VAR for the
// communication probe, LIST UPS and LIST VAR for status reporting. Each call
// opens a short-lived connection; upsd is built for that usage and the
// supervisor polls at multi-second cadences.
package nutclient

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds dialing and each protocol exchange.
const DefaultTimeout = 5 * time.Second

// Client queries one upsd instance.
type Client struct {
	host    string
	port    int
	timeout time.Duration
}

// New creates a client for the upsd at host:port.
func New(host string, port int) *Client {
	return &Client{host: host, port: port, timeout: DefaultTimeout}
}

// WithTimeout returns a copy of the client using the given timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	dup := *c
	dup.timeout = timeout
	return &dup
}

// Addr returns the upsd endpoint.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// GetVar fetches a single variable, e.g. GetVar(ctx, "ups", "ups.status").
func (c *Client) GetVar(ctx context.Context, ups, name string) (string, error) {
	var value string
	err := c.session(ctx, func(conn *session) error {
		line, err := conn.roundTrip(fmt.Sprintf("GET VAR %s %s", ups, name))
		if err != nil {
			return err
		}
		v, err := parseVarLine(line, ups, name)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	return value, err
}

// Status fetches ups.status, the variable behind the communication probe.
func (c *Client) Status(ctx context.Context, ups string) (string, error) {
	return c.GetVar(ctx, ups, "ups.status")
}

// ListUPS returns the name and description of every UPS upsd serves.
func (c *Client) ListUPS(ctx context.Context) (map[string]string, error) {
	result := make(map[string]string)
	err := c.session(ctx, func(conn *session) error {
		lines, err := conn.list("LIST UPS")
		if err != nil {
			return err
		}
		for _, line := range lines {
			fields := strings.SplitN(line, " ", 2)
			if fields[0] != "UPS" || len(fields) < 2 {
				continue
			}
			name, rest, _ := strings.Cut(fields[1], " ")
			result[name] = unquoteValue(rest)
		}
		return nil
	})
	return result, err
}

// Variables returns the full variable dump for one UPS, as fed to the
// metrics recorder.
func (c *Client) Variables(ctx context.Context, ups string) (map[string]string, error) {
	result := make(map[string]string)
	err := c.session(ctx, func(conn *session) error {
		lines, err := conn.list("LIST VAR " + ups)
		if err != nil {
			return err
		}
		prefix := "VAR " + ups + " "
		for _, line := range lines {
			rest, ok := strings.CutPrefix(line, prefix)
			if !ok {
				continue
			}
			name, value, _ := strings.Cut(rest, " ")
			result[name] = unquoteValue(value)
		}
		return nil
	})
	return result, err
}

// session runs fn over one connection, logging out afterwards.
func (c *Client) session(ctx context.Context, fn func(*session) error) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr())
	if err != nil {
		return fmt.Errorf("failed to connect to upsd at %s: %w", c.Addr(), err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(c.timeout))
	}

	s := &session{conn: conn, reader: bufio.NewReader(conn)}
	err = fn(s)
	// Best effort; upsd closes the connection on LOGOUT.
	fmt.Fprint(conn, "LOGOUT\n")
	return err
}

type session struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (s *session) roundTrip(command string) (string, error) {
	if _, err := fmt.Fprintf(s.conn, "%s\n", command); err != nil {
		return "", fmt.Errorf("failed to send %q: %w", command, err)
	}
	return s.readLine()
}

func (s *session) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read upsd response: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// list runs a LIST command and returns the lines between BEGIN and END.
func (s *session) list(command string) ([]string, error) {
	first, err := s.roundTrip(command)
	if err != nil {
		return nil, err
	}
	if err := errFromLine(first); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(first, "BEGIN "+command) {
		return nil, fmt.Errorf("unexpected upsd response %q to %q", first, command)
	}
	var lines []string
	for {
		line, err := s.readLine()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, "END "+command) {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// errFromLine converts an ERR response into a ProtocolError.
func errFromLine(line string) error {
	rest, ok := strings.CutPrefix(line, "ERR ")
	if !ok {
		return nil
	}
	code, _, _ := strings.Cut(rest, " ")
	return &ProtocolError{Code: code}
}

// parseVarLine extracts the quoted value from `VAR <ups> <name> "<value>"`.
func parseVarLine(line, ups, name string) (string, error) {
	if err := errFromLine(line); err != nil {
		return "", err
	}
	prefix := fmt.Sprintf("VAR %s %s ", ups, name)
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", fmt.Errorf("unexpected upsd response %q", line)
	}
	return unquoteValue(rest), nil
}

func unquoteValue(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
