package daemon

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
)

// startMockDaemon answers every command on the socket with the given
// response, then streams the events.
func startMockDaemon(t *testing.T, resp Response, events ...Event) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "mock.sock")
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				scanner := bufio.NewScanner(conn)
				for scanner.Scan() {
					data, _ := json.Marshal(resp)
					conn.Write(append(data, '\n'))
					for _, ev := range events {
						data, _ := json.Marshal(ev)
						conn.Write(append(data, '\n'))
					}
				}
			}(conn)
		}
	}()

	return socketPath
}

func TestClientSendCommand(t *testing.T) {
	socketPath := startMockDaemon(t, Response{OK: true, SessionID: "sess-42", Answer: "hello"})

	c, err := Connect(socketPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	resp, err := c.SendCommand(Command{Cmd: "status"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !resp.OK || resp.SessionID != "sess-42" || resp.Answer != "hello" {
		t.Errorf("response = %+v", resp)
	}
}

func TestClientReadEvent(t *testing.T) {
	socketPath := startMockDaemon(t,
		Response{OK: true},
		Event{Event: EventAnswer, Question: "q", Text: "a"},
	)

	c, err := Connect(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.SendCommand(Command{Cmd: "subscribe", Events: []string{"answer"}}); err != nil {
		t.Fatal(err)
	}

	ev, err := c.ReadEvent()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Event != EventAnswer || ev.Question != "q" || ev.Text != "a" {
		t.Errorf("event = %+v", ev)
	}
}

func TestClientConnectMissingSocket(t *testing.T) {
	if _, err := Connect(filepath.Join(t.TempDir(), "absent.sock")); err == nil {
		t.Fatal("expected connect error for missing socket")
	}
}
