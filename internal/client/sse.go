package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"spaceview/internal/events"
	"spaceview/internal/logging"
)

// Events subscribes to the server's live-update stream. The channel
// stays open across reconnects and closes only when ctx is canceled;
// transient failures back off exponentially between attempts.
func (c *Client) Events(ctx context.Context) <-chan events.Event {
	ch := make(chan events.Event, 64)
	go c.eventLoop(ctx, ch)
	return ch
}

func (c *Client) eventLoop(ctx context.Context, ch chan<- events.Event) {
	defer close(ch)

	delay := c.reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		err := c.streamEvents(ctx, ch)
		if ctx.Err() != nil {
			return
		}
		if time.Since(start) > c.reconnectMax {
			// The stream lived a while before dying; start fresh.
			delay = c.reconnectMin
		}
		logging.L().Warn("event stream dropped",
			zap.Error(err),
			zap.Duration("retry_in", delay),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.reconnectMax {
			delay = c.reconnectMax
		}
	}
}

// streamEvents holds one SSE connection open, forwarding each frame.
// A healthy read resets the backoff, so a long-lived stream that dies
// reconnects quickly.
func (c *Client) streamEvents(ctx context.Context, ch chan<- events.Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned %d", resp.StatusCode)
	}
	logging.L().Debug("event stream connected", zap.String("url", req.URL.String()))

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			if data == "" {
				continue
			}
			var ev events.Event
			if err := json.Unmarshal([]byte(data), &ev); err == nil {
				select {
				case ch <- ev:
				case <-ctx.Done():
					return nil
				default:
					// slow consumer, drop
				}
			}
			data = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return fmt.Errorf("stream closed by server")
}
