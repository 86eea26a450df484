package pvpython

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

// responsePrefix marks bridge responses on stdout; any other line is engine
// chatter and only logged.
const responsePrefix = "@@rpc "

// RemoteError is a failure reported by the bridge for one call.
type RemoteError struct {
	Method  string
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("pvpython %s: %s: %s", e.Method, e.Kind, e.Message)
}

// Is maps the bridge's not_supported kind onto engine.ErrNotSupported.
func (e *RemoteError) Is(target error) bool {
	return target == engine.ErrNotSupported && e.Kind == "not_supported"
}

// ErrClosed is returned for calls after the bridge went away.
var ErrClosed = errors.New("pvpython bridge closed")

type request struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client speaks the JSON-lines protocol of the bridge script. Calls are
// serialised; the bridge handles one request at a time.
type Client struct {
	mu     sync.Mutex
	w      io.Writer
	r      *bufio.Reader
	nextID int
	closed bool
	log    *logrus.Entry
}

// NewClient wraps the bridge's stdout (r) and stdin (w).
func NewClient(r io.Reader, w io.Writer) *Client {
	return &Client{
		w:   w,
		r:   bufio.NewReaderSize(r, 64*1024),
		log: logrus.WithField("component", "pvpython"),
	}
}

// Call sends one request and decodes its result into out (which may be nil).
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.nextID++
	id := c.nextID
	line, err := json.Marshal(request{ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	if _, err := c.w.Write(append(line, '\n')); err != nil {
		c.closed = true
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	c.log.WithField("method", method).Debug("call")

	for {
		raw, err := c.r.ReadBytes('\n')
		if err != nil {
			c.closed = true
			if errors.Is(err, io.EOF) {
				return ErrClosed
			}
			return fmt.Errorf("%w: %w", ErrClosed, err)
		}
		raw = bytes.TrimRight(raw, "\r\n")
		payload, ok := bytes.CutPrefix(raw, []byte(responsePrefix))
		if !ok {
			if len(raw) > 0 {
				c.log.Debugf("engine: %s", raw)
			}
			continue
		}

		var resp response
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("decode %s response: %w", method, err)
		}
		if resp.ID != id {
			c.log.Debugf("dropping stale response %d", resp.ID)
			continue
		}
		if resp.Error != nil {
			return &RemoteError{Method: method, Kind: resp.Error.Kind, Message: resp.Error.Message}
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	}
}
