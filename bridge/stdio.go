package bridge

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/limits"
)

// StdioChannel speaks the browser native-messaging framing: every message
// is a 4-byte little-endian length followed by that many bytes of JSON.
// Frames are read by a background goroutine so Receive honours ctx.
type StdioChannel struct {
	w   io.Writer
	wmu sync.Mutex

	frames chan frame
	done   chan struct{}
	once   sync.Once
	closer io.Closer
}

type frame struct {
	data []byte
	err  error
}

// NewStdioChannel reads frames from r and writes frames to w. If r
// implements io.Closer it is closed by Close.
func NewStdioChannel(r io.Reader, w io.Writer) *StdioChannel {
	c := &StdioChannel{
		w:      w,
		frames: make(chan frame),
		done:   make(chan struct{}),
	}
	if cl, ok := r.(io.Closer); ok {
		c.closer = cl
	}
	go c.readLoop(bufio.NewReader(r))
	return c
}

func (c *StdioChannel) readLoop(r *bufio.Reader) {
	for {
		data, err := readFrame(r)
		select {
		case c.frames <- frame{data: data, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated frame header: %w", err)
		}
		return nil, err
	}
	n := binary.LittleEndian.Uint32(header[:])
	if n == 0 {
		return nil, limits.ErrMessageEmpty
	}
	if uint64(n) > uint64(limits.MaxInboundEnvelope) {
		return nil, fmt.Errorf("%w: frame size %d exceeds limit %d", limits.ErrMessageTooLarge, n, limits.MaxInboundEnvelope)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("truncated frame: %w", err)
	}
	return data, nil
}

// Receive returns the next frame. io.EOF means the peer closed its end.
func (c *StdioChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case f := <-c.frames:
		return f.data, f.err
	case <-c.done:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send writes one frame. Frames above limits.MaxOutboundEnvelope are
// rejected without writing anything.
func (c *StdioChannel) Send(ctx context.Context, msg []byte) error {
	if err := limits.ValidateOutboundEnvelope(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	buf := make([]byte, 4+len(msg))
	binary.LittleEndian.PutUint32(buf, uint32(len(msg)))
	copy(buf[4:], msg)

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.Write(buf); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "StdioChannel.Send",
			"size":     len(msg),
			"error":    err.Error(),
		}).Warn("Failed to write frame")
		return err
	}
	return nil
}

// Close stops the channel and closes the reader when it is closable.
func (c *StdioChannel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}
