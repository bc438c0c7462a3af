// Package client talks to a remote server over its JSON API, so a shell
// on one machine can browse disks attached to another. It satisfies
// scan.Provider, which makes remote browsing a drop-in swap for the
// local scanner.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spaceview/internal/diskinfo"
	"spaceview/internal/layout"
	"spaceview/internal/scan"
	"spaceview/internal/trash"
	"spaceview/internal/tree"
)

// ErrOffline reports that the server did not answer at all, as opposed
// to answering with an error.
var ErrOffline = errors.New("server unreachable")

// Client is a connection to one server.
type Client struct {
	baseURL string
	http    *http.Client
	// stream has no timeout; SSE connections are expected to live for
	// the whole session.
	stream *http.Client

	reconnectMin time.Duration
	reconnectMax time.Duration
}

// New builds a client for baseURL, e.g. "http://localhost:5005".
func New(baseURL string) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		http:         &http.Client{Timeout: 5 * time.Minute, Transport: transport},
		stream:       &http.Client{Transport: transport},
		reconnectMin: time.Second,
		reconnectMax: 30 * time.Second,
	}
}

// Ping checks that the server is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// Scan fetches a directory tree. Depth 0 takes the server's default.
// Missing and non-directory paths come back as the scanner's own
// sentinel errors, so callers branch the same way in both modes.
func (c *Client) Scan(ctx context.Context, path string, depth int) (*tree.RawNode, error) {
	q := url.Values{}
	if path != "" {
		q.Set("path", path)
	}
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}
	var node tree.RawNode
	if err := c.getJSON(ctx, "/api/scan?"+q.Encode(), &node, map[int]error{
		http.StatusNotFound:   scan.ErrNotFound,
		http.StatusBadRequest: scan.ErrNotDirectory,
	}); err != nil {
		return nil, err
	}
	return &node, nil
}

// Layout asks the server to scan and lay out in one round trip. Thin
// shells that do not carry the engines render these frames directly.
func (c *Client) Layout(ctx context.Context, path string, mode layout.Mode, w, h float64) (*layout.Frame, error) {
	q := url.Values{}
	if path != "" {
		q.Set("path", path)
	}
	q.Set("mode", string(mode))
	q.Set("width", strconv.FormatFloat(w, 'f', -1, 64))
	q.Set("height", strconv.FormatFloat(h, 'f', -1, 64))
	var frame layout.Frame
	if err := c.getJSON(ctx, "/api/layout?"+q.Encode(), &frame, map[int]error{
		http.StatusNotFound: scan.ErrNotFound,
	}); err != nil {
		return nil, err
	}
	return &frame, nil
}

// Roots lists the server's scannable top-level locations.
func (c *Client) Roots(ctx context.Context) ([]diskinfo.Root, error) {
	var roots []diskinfo.Root
	err := c.getJSON(ctx, "/api/roots", &roots, nil)
	return roots, err
}

// DiskInfo fetches the volume summary with its category breakdown.
func (c *Client) DiskInfo(ctx context.Context) (diskinfo.Info, error) {
	var info diskinfo.Info
	err := c.getJSON(ctx, "/api/disk-info", &info, nil)
	return info, err
}

// CleanTargets fetches the sized cleanup suggestions.
func (c *Client) CleanTargets(ctx context.Context) ([]diskinfo.CleanTarget, error) {
	var targets []diskinfo.CleanTarget
	err := c.getJSON(ctx, "/api/clean-targets", &targets, nil)
	return targets, err
}

// Delete removes a path on the server, recoverably unless permanent is
// set. Refusals map back onto the deleter's sentinels.
func (c *Client) Delete(ctx context.Context, path string, permanent bool) (trash.Result, error) {
	body, err := json.Marshal(map[string]any{"path": path, "permanent": permanent})
	if err != nil {
		return trash.Result{}, err
	}
	var res trash.Result
	err = c.postJSON(ctx, "/api/delete", body, &res, map[int]error{
		http.StatusForbidden: trash.ErrProtected,
		http.StatusNotFound:  fs.ErrNotExist,
	})
	return res, err
}

// Trash lists the server's recoverable entries, newest first.
func (c *Client) Trash(ctx context.Context) ([]trash.Entry, error) {
	var entries []trash.Entry
	err := c.getJSON(ctx, "/api/trash", &entries, nil)
	return entries, err
}

// Restore puts a trashed entry back and returns the restored path.
func (c *Client) Restore(ctx context.Context, trashName string) (string, error) {
	body, err := json.Marshal(map[string]string{"trash_name": trashName})
	if err != nil {
		return "", err
	}
	var out struct {
		Restored string `json:"restored"`
	}
	err = c.postJSON(ctx, "/api/restore", body, &out, map[int]error{
		http.StatusNotFound: fs.ErrNotExist,
	})
	return out.Restored, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any, sentinels map[int]error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out, sentinels)
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, out any, sentinels map[int]error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, sentinels)
}

// do runs the request and decodes the reply. Non-2xx answers turn into
// the matching sentinel when one is registered, otherwise into an error
// carrying the server's message.
func (c *Client) do(req *http.Request, out any, sentinels map[int]error) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(resp)
		if sentinel, ok := sentinels[resp.StatusCode]; ok {
			return fmt.Errorf("%s: %w", msg, sentinel)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func serverMessage(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(resp.StatusCode)
}
