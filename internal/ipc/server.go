package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"go.klb.dev/multiclip/internal/clip"
	"go.klb.dev/multiclip/internal/hub"
	"go.klb.dev/multiclip/internal/message"
	"go.klb.dev/multiclip/internal/wire"
)

const requestTimeout = 5 * time.Second

// Server answers IPC requests on behalf of the daemon.
type Server struct {
	h       *hub.Hub
	backend clip.Backend
	version string
	nextID  atomic.Int64
}

// NewServer returns a Server publishing from h and writing copies to backend.
func NewServer(h *hub.Hub, backend clip.Backend, version string) *Server {
	return &Server{h: h, backend: backend, version: version}
}

// Serve accepts connections on ln until ctx is cancelled. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("ipc accept failed", "err", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	wc := wire.New(conn)
	defer wc.Close()

	wc.SetReadDeadline(requestTimeout)
	msg, err := wc.ReadMsg()
	if err != nil {
		slog.Debug("ipc: bad request", "err", err)
		return
	}
	wc.SetReadDeadline(0)

	switch msg.Type {
	case message.TypePing:
		_ = wc.WriteMsg(&message.Message{
			Type:        message.TypePong,
			Version:     s.version,
			Subscribers: s.h.Subscribers(),
		})

	case message.TypeCopy:
		if err := s.copy(msg); err != nil {
			slog.Warn("ipc: copy failed", "err", err)
			_ = wc.WriteMsg(message.NewError(err))
			return
		}
		_ = wc.WriteMsg(&message.Message{Type: message.TypeOK})

	case message.TypeTail:
		s.tail(ctx, wc, msg.Replay)

	default:
		_ = wc.WriteMsg(message.NewError(fmt.Errorf("unsupported request %q", msg.Type)))
	}
}

func (s *Server) copy(msg *message.Message) error {
	content, err := msg.Content()
	if err != nil {
		return err
	}
	if err := s.backend.Write(content); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	slog.Debug("ipc: clipboard written", "size_bytes", len(content))
	return nil
}

func (s *Server) tail(ctx context.Context, wc *wire.Conn, replay bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := &tailSub{
		id: fmt.Sprintf("tail-%d", s.nextID.Add(1)),
		ch: make(chan hub.Event, 64),
	}
	if replay {
		s.h.RegisterWithLatest(sub)
	} else {
		s.h.Register(sub)
	}
	defer s.h.Unregister(sub)

	// Any read (EOF included) means the client is done.
	go func() {
		_, _ = wc.ReadMsg()
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.ch:
			if err := wc.WriteMsg(message.NewEntry(ev.ID, ev.Timestamp, ev.Content)); err != nil {
				slog.Debug("ipc: tail write failed", "subscriber", sub.id, "err", err)
				return
			}
		}
	}
}

// tailSub is a hub.Subscriber feeding one tail connection.
type tailSub struct {
	id string
	ch chan hub.Event
}

func (t *tailSub) ID() string { return t.id }

func (t *tailSub) Send(ev hub.Event) {
	select {
	case t.ch <- ev:
	default:
		slog.Warn("tail subscriber too slow, dropping entry", "subscriber", t.id, "id", ev.ID)
	}
}
