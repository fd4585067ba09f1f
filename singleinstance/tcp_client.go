package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

type tcpClient struct{}

func newTCPClient() Client { return &tcpClient{} }

func (c *tcpClient) TryRunOnce(ctx context.Context, outputToStdout bool) (bool, string, error) {
	deadline := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}

	start, end := getPortRange()
	for port := start; port <= end; port++ {
		if !pingResident(port, deadline) {
			continue
		}

		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		conn, err := net.DialTimeout("tcp", addr, deadline)
		if err != nil {
			continue
		}

		w := bufio.NewWriter(conn)
		if outputToStdout {
			_, err = w.WriteString("STDOUT\n")
		} else {
			_, err = w.WriteString("CLIPBOARD\n")
		}
		if err != nil {
			conn.Close()
			return true, "", err
		}
		if err := w.Flush(); err != nil {
			conn.Close()
			return true, "", err
		}

		// The resident waits for user selection and the API round-trip, so no
		// read deadline here beyond the caller's context.
		text, err := readResponse(conn)
		conn.Close()
		return true, text, err
	}

	return false, "", nil
}

// DetectResidentPort scans the configured range and reports the port of a
// resident that answers PING.
func DetectResidentPort(ctx context.Context) (int, bool) {
	timeout := 300 * time.Millisecond
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			timeout = d
		}
	}
	start, end := getPortRange()
	for port := start; port <= end; port++ {
		if pingResident(port, timeout) {
			return port, true
		}
	}
	return 0, false
}

// pingResident performs one PING/PONG handshake against a candidate port.
func pingResident(port int, timeout time.Duration) bool {
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(pingRequest)); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

// readResponse parses "SUCCESS\n<text>" or "ERROR\n<message>".
func readResponse(conn net.Conn) (string, error) {
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}

	rest, err := io.ReadAll(br)
	if err != nil {
		return "", err
	}
	body := string(rest)

	switch strings.TrimSpace(status) {
	case "SUCCESS":
		return body, nil
	case "ERROR":
		if body == "" {
			body = "resident reported an error"
		}
		return "", errors.New(body)
	default:
		return "", errors.New("unexpected response from resident: " + strings.TrimSpace(status))
	}
}
