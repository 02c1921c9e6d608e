// Package ipc is the local control socket of the daemon.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const SocketPath = "/tmp/marvin.sock"

const (
	// CmdTrigger records one utterance without the wake word.
	CmdTrigger = "trigger"
	// CmdSay dispatches Text as if it had been spoken.
	CmdSay = "say"
)

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type Reply struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

type Handler func(ctx context.Context, msg ControlMessage) Reply

type Server struct {
	path string
	ln   net.Listener
	wg   sync.WaitGroup
}

// StartServer listens on path, replacing a stale socket, and serves until
// ctx is done or Close is called.
func StartServer(ctx context.Context, path string, handler Handler) (*Server, error) {
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{path: path, ln: ln}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		for {
			conn, err := ln.Accept()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if err != nil {
				log.Warn("ipc accept", "err", err)
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				handleConn(ctx, conn, handler)
			}()
		}
	}()

	return s, nil
}

func (s *Server) Addr() string {
	return s.path
}

// Close stops accepting and removes the socket file. In-flight requests
// are not interrupted.
func (s *Server) Close() error {
	_ = os.Remove(s.path)
	err := s.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Wait blocks until the accept loop and all connections are done.
func (s *Server) Wait() {
	s.wg.Wait()
}

func handleConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("ipc decode", "err", err)
		return
	}
	log.Debug("ipc message", "cmd", msg.Cmd)

	reply := handler(ctx, msg)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Warn("ipc reply", "err", err)
	}
}

// SendCommand sends one message to the daemon and waits for its reply.
func SendCommand(ctx context.Context, path string, msg ControlMessage) (Reply, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(2 * time.Minute))
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, err
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if reply.Error != "" {
		return reply, errors.New(reply.Error)
	}
	return reply, nil
}
