package rtdb

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"interop-dashboard/internal/model"
)

const (
	// PathRoot is where the whole-tree subscription is rooted.
	PathRoot = "/"
	// PathActuator holds the door actuator subtree.
	PathActuator = "/atuador"

	maxEventSize = 16 << 20
)

var (
	// ErrStreamCancelled is sent by the server when the rules no longer allow reading the path.
	ErrStreamCancelled = errors.New("rtdb: stream cancelled by server")
	// ErrAuthRevoked means the access key expired or was revoked.
	ErrAuthRevoked = errors.New("rtdb: auth revoked")
)

// Config holds the connection parameters supplied at startup.
type Config struct {
	URL        string // e.g. https://<db>.firebaseio.com
	Auth       string // access key, sent as ?auth=
	HTTPClient *http.Client
	Logger     *slog.Logger
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Client talks to a Firebase Realtime Database over its REST interface.
// Caller should call Close() when done.
type Client struct {
	base       *url.URL
	auth       string
	http       *http.Client
	log        *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// New validates cfg and returns a client. No connection is opened until
// Subscribe or Set is called.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rtdb: url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("rtdb: parse url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("rtdb: unsupported scheme %q", base.Scheme)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		base:       base,
		auth:       cfg.Auth,
		http:       hc,
		log:        logger.With("component", "rtdb"),
		minBackoff: cfg.MinBackoff,
		maxBackoff: cfg.MaxBackoff,
	}
	if c.minBackoff <= 0 {
		c.minBackoff = 500 * time.Millisecond
	}
	if c.maxBackoff < c.minBackoff {
		c.maxBackoff = 30 * time.Second
	}
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Set replaces the value at path.
func (c *Client) Set(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("rtdb set %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rtdb set %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rtdb set %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("rtdb set %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// SetActuator writes {estado: open} to /atuador, replacing the subtree.
func (c *Client) SetActuator(ctx context.Context, open bool) error {
	return c.Set(ctx, PathActuator, model.ActuatorCommand{Estado: open})
}

// Subscribe streams changes under path and calls onSnapshot with the whole
// tree after every change. It reconnects with backoff until ctx is done, and
// returns early only when the server cancels the stream or revokes auth.
func (c *Client) Subscribe(ctx context.Context, path string, onSnapshot func(model.Snapshot)) error {
	backoff := c.minBackoff
	for {
		received, err := c.stream(ctx, path, onSnapshot)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrStreamCancelled) || errors.Is(err, ErrAuthRevoked) {
			return err
		}
		if received {
			backoff = c.minBackoff
		}
		c.log.Warn("stream ended; reconnecting", "path", path, "err", err, "backoff", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

// stream runs one connection. It reports whether any data event arrived.
func (c *Client) stream(ctx context.Context, path string, onSnapshot func(model.Snapshot)) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return false, fmt.Errorf("rtdb stream %s: %w", path, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("rtdb stream %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("rtdb stream %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	c.log.Info("stream connected", "path", path)

	var (
		t        tree
		event    string
		data     strings.Builder
		received bool
	)
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), maxEventSize)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if event != "" {
				changed, err := c.apply(&t, event, data.String())
				if err != nil {
					return received, err
				}
				if changed {
					received = true
					snap, err := t.snapshot()
					if err != nil {
						c.log.Error("invalid snapshot; skipped", "err", err)
					} else {
						onSnapshot(snap)
					}
				}
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := sc.Err(); err != nil {
		return received, fmt.Errorf("rtdb stream %s: %w", path, err)
	}
	return received, io.EOF
}

type streamEvent struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

// apply folds one event into t and reports whether the tree changed.
func (c *Client) apply(t *tree, event, payload string) (bool, error) {
	switch event {
	case "keep-alive":
		return false, nil
	case "cancel":
		return false, ErrStreamCancelled
	case "auth_revoked":
		return false, ErrAuthRevoked
	case "put", "patch":
	default:
		c.log.Debug("unknown stream event", "event", event)
		return false, nil
	}

	var ev streamEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		c.log.Error("invalid stream event; skipped", "event", event, "err", err)
		return false, nil
	}
	if event == "put" {
		var v any
		if len(ev.Data) > 0 {
			if err := json.Unmarshal(ev.Data, &v); err != nil {
				c.log.Error("invalid put data; skipped", "path", ev.Path, "err", err)
				return false, nil
			}
		}
		t.put(ev.Path, v)
		return true, nil
	}
	var m map[string]any
	if err := json.Unmarshal(ev.Data, &m); err != nil {
		c.log.Error("invalid patch data; skipped", "path", ev.Path, "err", err)
		return false, nil
	}
	t.patch(ev.Path, m)
	return true, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	base := strings.TrimRight(u.Path, "/")
	if p := strings.Trim(path, "/"); p != "" {
		u.Path = base + "/" + p + ".json"
	} else {
		u.Path = base + "/.json"
	}
	if c.auth != "" {
		q := u.Query()
		q.Set("auth", c.auth)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
