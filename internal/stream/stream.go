// Package stream turns token producers into the Server-Sent-Events wire
// format consumed by the chat front end. Producers emit explicit event
// variants (Token, Done, Error) over a channel instead of raising through the
// call stack; the writer pattern-matches on the variant.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EventKind discriminates the stream event variants.
type EventKind int

const (
	// KindToken carries one incremental answer fragment.
	KindToken EventKind = iota
	// KindDone terminates the stream and carries the full assembled answer.
	KindDone
	// KindError terminates the stream after a producer failure.
	KindError
)

// Event is one unit of a response stream. Exactly one terminal event
// (KindDone or KindError) ends every well-formed stream.
type Event struct {
	Kind  EventKind
	Token string
	Full  string
	Err   error
}

// Wire frames. Field order and names are part of the front-end contract and
// must round-trip through JSON unchanged.
type tokenFrame struct {
	Token string `json:"token"`
	Done  bool   `json:"done"`
}

type doneFrame struct {
	Token      string `json:"token"`
	Done       bool   `json:"done"`
	FullAnswer string `json:"full_answer"`
}

type errorFrame struct {
	Error string `json:"error"`
	Done  bool   `json:"done"`
}

// FromText streams a complete canned response one rune at a time, pacing
// emissions with the given delay to emulate generation, then terminates with
// the full text. The producer stops early when ctx is cancelled.
func FromText(ctx context.Context, text string, delay time.Duration) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for _, r := range text {
			select {
			case out <- Event{Kind: KindToken, Token: string(r)}:
			case <-ctx.Done():
				return
			}
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return
				}
			}
		}
		select {
		case out <- Event{Kind: KindDone, Full: text}:
		case <-ctx.Done():
		}
	}()
	return out
}

// WriteSSE relays events as SSE blocks until a terminal event arrives,
// flushing after every frame. It returns the full answer from the Done event.
// A producer error is converted into the generic error frame; err then
// reports the original failure so the caller can skip the history update.
// A transport write failure aborts immediately with no further frames.
func WriteSSE(w io.Writer, flusher http.Flusher, events <-chan Event) (string, error) {
	for ev := range events {
		switch ev.Kind {
		case KindToken:
			if err := writeFrame(w, flusher, tokenFrame{Token: ev.Token, Done: false}); err != nil {
				return "", fmt.Errorf("write token frame: %w", err)
			}
		case KindDone:
			if err := writeFrame(w, flusher, doneFrame{Token: "", Done: true, FullAnswer: ev.Full}); err != nil {
				return "", fmt.Errorf("write done frame: %w", err)
			}
			return ev.Full, nil
		case KindError:
			// Internal detail stays server-side; the client sees a
			// generic message.
			_ = writeFrame(w, flusher, errorFrame{Error: "An error occurred", Done: true})
			return "", ev.Err
		}
	}
	// Producer vanished without a terminal event, e.g. on cancellation.
	return "", context.Canceled
}

func writeFrame(w io.Writer, flusher http.Flusher, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}
