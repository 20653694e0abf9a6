// Package framed carries protocol messages over any io.Reader/io.Writer pair
// (stdio, sockets) as length-prefixed CBOR records, letting non-browser hosts
// and subprocess embeddings satisfy the Channel contract. The envelope is
// CBOR for compact binary framing; the payload inside stays the protocol's
// JSON encoding.
package framed

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"

	taskbridge "github.com/embedkit/taskbridge-go"
)

// DefaultMaxFrame is the default per-record size limit (1 MB).
const DefaultMaxFrame = 1 << 20

// MaxFrameHardLimit caps any configured limit (16 MB).
const MaxFrameHardLimit = 16 << 20

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("framed transport closed")

type record struct {
	Type    string `cbor:"type"`
	Payload []byte `cbor:"payload,omitempty"`
}

// Option configures a Transport.
type Option func(*Transport)

// WithMaxFrame sets the per-record size limit, capped at the hard limit.
func WithMaxFrame(n int) Option {
	return func(t *Transport) {
		if n > 0 && n <= MaxFrameHardLimit {
			t.maxFrame = n
		}
	}
}

// Transport is a Channel over a byte stream. Writes are serialized; reads
// happen on the goroutine that calls Run.
type Transport struct {
	reader   io.Reader
	writer   io.Writer
	maxFrame int

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[int]func(*taskbridge.Message)
	nextID   int
	closed   bool
}

// New creates a transport over the given stream pair.
func New(r io.Reader, w io.Writer, opts ...Option) *Transport {
	t := &Transport{
		reader:   r,
		writer:   w,
		maxFrame: DefaultMaxFrame,
		handlers: make(map[int]func(*taskbridge.Message)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Send encodes the message as a length-prefixed CBOR record.
func (t *Transport) Send(msg *taskbridge.Message) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrClosed
	}

	var payload []byte
	if msg.Payload != nil {
		encoded, err := json.Marshal(msg.Payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", msg.Type.String(), err)
		}
		payload = encoded
	}
	frame, err := cbor.Marshal(record{Type: string(msg.Type), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(frame) > t.maxFrame {
		return fmt.Errorf("frame size %d exceeds limit %d", len(frame), t.maxFrame)
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(frame)))

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(prefix[:]); err != nil {
		return fmt.Errorf("write frame prefix: %w", err)
	}
	if _, err := t.writer.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Subscribe registers a handler for inbound messages. Messages are delivered
// by Run.
func (t *Transport) Subscribe(handler func(*taskbridge.Message)) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	id := t.nextID
	t.nextID++
	t.handlers[id] = handler
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.handlers, id)
	}, nil
}

// Run reads records until EOF or a fatal stream error, dispatching each
// decoded message to the subscribers. Records carrying unknown or foreign
// types are skipped: the stream may be shared with unrelated traffic.
// Typically invoked on its own goroutine.
func (t *Transport) Run() error {
	for {
		frame, err := t.readFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var rec record
		if err := cbor.Unmarshal(frame, &rec); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		msg, err := taskbridge.DecodeMessageParts(taskbridge.MessageType(rec.Type), rec.Payload)
		if err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		if msg == nil {
			// Foreign or unknown record on a shared stream.
			continue
		}
		t.dispatch(msg)
	}
}

// Close stops accepting sends and drops subscribers. It does not close the
// underlying streams.
func (t *Transport) Close() {
	t.mu.Lock()
	t.closed = true
	t.handlers = make(map[int]func(*taskbridge.Message))
	t.mu.Unlock()
}

func (t *Transport) readFrame() ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(t.reader, prefix[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(prefix[:])
	if int(length) > t.maxFrame {
		return nil, fmt.Errorf("frame size %d exceeds limit %d", length, t.maxFrame)
	}
	if int(length) > MaxFrameHardLimit {
		return nil, fmt.Errorf("frame size %d exceeds hard limit %d", length, MaxFrameHardLimit)
	}
	frame := make([]byte, length)
	if _, err := io.ReadFull(t.reader, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (t *Transport) dispatch(msg *taskbridge.Message) {
	t.mu.Lock()
	handlers := make([]func(*taskbridge.Message), 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}
