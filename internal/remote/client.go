package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client calls a display process. Every call is a single attempt; failures
// come back as errors for the caller to show as status text.
type Client struct {
	Addr string
	HTTP *http.Client
}

func NewClient(addr string) *Client {
	return &Client{Addr: addr, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) base() string {
	addr := strings.TrimRight(c.Addr, "/")
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return addr
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// call posts body and returns the ack message. ok=false acks become errors
// carrying the display's message.
func (c *Client) call(ctx context.Context, path string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var ack Ack
	if err := json.Unmarshal(raw, &ack); err != nil {
		return "", fmt.Errorf("%s: unexpected reply (%s): %s", path, resp.Status, strings.TrimSpace(string(raw)))
	}
	if !ack.OK {
		if ack.Message == "" {
			ack.Message = resp.Status
		}
		return "", errors.New(ack.Message)
	}
	return ack.Message, nil
}

func (c *Client) callJSON(ctx context.Context, path string, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return c.call(ctx, path, body)
}

// ApplyProject sends a project file ({"project": ...} wrapper) to the
// display.
func (c *Client) ApplyProject(ctx context.Context, wrapper []byte) (string, error) {
	return c.call(ctx, "/v1/project", wrapper)
}

// Play starts playback, from at when it is not nil.
func (c *Client) Play(ctx context.Context, at *float64) (string, error) {
	return c.callJSON(ctx, "/v1/play", playRequest{AtSeconds: at})
}

func (c *Client) Pause(ctx context.Context) (string, error) {
	return c.call(ctx, "/v1/pause", nil)
}

func (c *Client) Stop(ctx context.Context) (string, error) {
	return c.call(ctx, "/v1/stop", nil)
}

func (c *Client) Seek(ctx context.Context, to float64) (string, error) {
	return c.callJSON(ctx, "/v1/seek", seekRequest{ToSeconds: to})
}

func (c *Client) SetRate(ctx context.Context, rate float64) (string, error) {
	return c.callJSON(ctx, "/v1/rate", rateRequest{Rate: rate})
}

// State fetches the display's transport state.
func (c *Client) State(ctx context.Context) (TransportState, error) {
	var st TransportState
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/v1/state", nil)
	if err != nil {
		return st, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("state: %s", resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&st)
	return st, err
}

// Active asks which clip node shows now. ok is false when nothing is
// scheduled for it.
func (c *Client) Active(ctx context.Context, node string) (a Active, ok bool, err error) {
	u := c.base() + "/v1/active?node=" + url.QueryEscape(node)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return a, false, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return a, false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent:
		return a, false, nil
	case http.StatusOK:
		err = json.NewDecoder(resp.Body).Decode(&a)
		return a, err == nil, err
	default:
		return a, false, fmt.Errorf("active: %s", resp.Status)
	}
}

// Subscribe calls fn with every state update until ctx is done or the
// connection drops.
func (c *Client) Subscribe(ctx context.Context, fn func(TransportState)) error {
	wsURL := "ws" + strings.TrimPrefix(c.base(), "http") + "/v1/subscribe"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		var st TransportState
		if err := conn.ReadJSON(&st); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(st)
	}
}
