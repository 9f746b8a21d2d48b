package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mproffitt/folden/pkg/handler"
	"github.com/mproffitt/folden/pkg/server"
)

// HTTPDoer the HTTP client used to reach the daemon
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a running daemon
type Client struct {
	baseURL *url.URL
	client  HTTPDoer
	dialer  *websocket.Dialer
}

// NewClient Create a client for the daemon at address.
//
// address is either host:port or a full http URL.
func NewClient(address string) (*Client, error) {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid daemon address %q: %w", address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid daemon address %q: unsupported scheme %s", address, u.Scheme)
	}
	return &Client{
		baseURL: u,
		client:  &http.Client{Timeout: 30 * time.Second},
		dialer:  websocket.DefaultDialer,
	}, nil
}

// Register binds a directory to a handler
func (c *Client) Register(ctx context.Context, req server.RegisterRequest) (server.Result, error) {
	var resp ResultResponse
	err := c.post(ctx, "/api/register", req, &resp)
	return server.Result{Warnings: resp.Warnings}, err
}

// Start starts the handler of a registered directory
func (c *Client) Start(ctx context.Context, dir string) (server.Result, error) {
	var resp ResultResponse
	err := c.post(ctx, "/api/start", DirectoryRequest{Directory: dir}, &resp)
	return server.Result{Warnings: resp.Warnings}, err
}

// Stop stops the handler of a directory
func (c *Client) Stop(ctx context.Context, dir string) error {
	return c.post(ctx, "/api/stop", DirectoryRequest{Directory: dir}, nil)
}

// Modify changes the handler of a registered directory
func (c *Client) Modify(ctx context.Context, req server.ModifyRequest) (server.Result, error) {
	var resp ResultResponse
	err := c.post(ctx, "/api/modify", req, &resp)
	return server.Result{Warnings: resp.Warnings}, err
}

// Status reports on one directory, or every directory when all is set
func (c *Client) Status(ctx context.Context, dir string, all bool) (map[string]server.Summary, error) {
	query := url.Values{}
	if all {
		query.Set("all", strconv.FormatBool(true))
	} else {
		query.Set("directory", dir)
	}
	var resp StatusResponse
	if err := c.get(ctx, "/api/status", query, &resp); err != nil {
		return nil, err
	}
	if resp.Directories == nil {
		resp.Directories = make(map[string]server.Summary)
	}
	return resp.Directories, nil
}

// Types lists the handler types the daemon accepts
func (c *Client) Types(ctx context.Context) ([]handler.HandlerType, error) {
	var resp TypesResponse
	if err := c.get(ctx, "/api/types", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Types, nil
}

// Trace streams the trace records of a running handler.
//
// The channel is closed when ctx is done, the handler stops or the
// connection drops.
func (c *Client) Trace(ctx context.Context, dir string) (<-chan handler.TraceRecord, error) {
	u := c.endpoint("/api/trace", url.Values{"directory": []string{dir}})
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, decodeError(resp)
		}
		return nil, fmt.Errorf("trace %s: %w", dir, err)
	}

	records := make(chan handler.TraceRecord)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	go func() {
		defer close(records)
		defer close(done)
		for {
			var record handler.TraceRecord
			if err := conn.ReadJSON(&record); err != nil {
				return
			}
			select {
			case records <- record:
			case <-ctx.Done():
				return
			}
		}
	}()
	return records, nil
}

func (c *Client) endpoint(path string, query url.Values) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return &u
}

func (c *Client) get(ctx context.Context, path string, query url.Values, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query).String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, into)
}

func (c *Client) post(ctx context.Context, path string, payload, into any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil).String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, into)
}

func (c *Client) do(req *http.Request, into any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if into == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid daemon response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Code: codeInternal}
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		if body.Code != "" {
			apiErr.Code = body.Code
		}
	} else {
		apiErr.Message = fmt.Sprintf("daemon returned %s", resp.Status)
	}
	return apiErr
}
