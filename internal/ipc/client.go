package ipc

import (
	"context"
	"fmt"

	"go.klb.dev/multiclip/internal/message"
	"go.klb.dev/multiclip/internal/wire"
)

// Status is a running daemon's answer to Ping.
type Status struct {
	Version     string   `json:"version"`
	Subscribers []string `json:"subscribers"`
}

// Ping asks the daemon at path for its version and current subscribers.
func Ping(path string) (Status, error) {
	resp, err := roundTrip(path, &message.Message{Type: message.TypePing})
	if err != nil {
		return Status{}, err
	}
	if resp.Type != message.TypePong {
		return Status{}, fmt.Errorf("ipc ping: unexpected reply %q", resp.Type)
	}
	return Status{Version: resp.Version, Subscribers: resp.Subscribers}, nil
}

// Copy asks the daemon at path to put content on the system clipboard.
func Copy(path string, content []byte) error {
	resp, err := roundTrip(path, message.NewCopy(content))
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if resp.Type != message.TypeOK {
		return fmt.Errorf("ipc copy: unexpected reply %q", resp.Type)
	}
	return nil
}

// Tail subscribes to recorded entries and calls fn for each until ctx is
// cancelled, the daemon goes away, or fn returns an error. If replay is set
// the latest entry recorded before subscribing is delivered first.
func Tail(ctx context.Context, path string, replay bool, fn func(*message.Message) error) error {
	conn, err := Dial(path)
	if err != nil {
		return err
	}
	wc := wire.New(conn)
	defer wc.Close()

	stop := context.AfterFunc(ctx, func() { _ = wc.Close() })
	defer stop()

	if err := wc.WriteMsg(&message.Message{Type: message.TypeTail, Replay: replay}); err != nil {
		return fmt.Errorf("ipc tail: %w", err)
	}
	for {
		msg, err := wc.ReadMsg()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ipc tail: %w", err)
		}
		if err := msg.Err(); err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}

func roundTrip(path string, req *message.Message) (*message.Message, error) {
	conn, err := Dial(path)
	if err != nil {
		return nil, err
	}
	wc := wire.New(conn)
	defer wc.Close()

	if err := wc.WriteMsg(req); err != nil {
		return nil, fmt.Errorf("ipc %s: %w", req.Type, err)
	}
	wc.SetReadDeadline(requestTimeout)
	resp, err := wc.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("ipc %s: %w", req.Type, err)
	}
	return resp, nil
}
