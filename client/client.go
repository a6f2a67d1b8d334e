// Package client calls the lucky money API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
)

// ErrNotFound is returned by Spin when the server does not know the participant.
var ErrNotFound = errors.New("client: participant not found")

// APIError is a non-2xx response from the API.
type APIError struct {
	Status      int                 `json:"-"`
	Code        string              `json:"code"`
	Message     string              `json:"error"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("lixi api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("lixi api: %d: %s", e.Status, e.Message)
}

type Prize struct {
	Label  prize.Label `json:"label"`
	Amount int64       `json:"amount"`
}

type Registration struct {
	ParticipantID   string `json:"participantId"`
	Name            string `json:"name"`
	PhoneMasked     string `json:"phoneMasked"`
	HasSpun         bool   `json:"hasSpun"`
	IsExistingPhone bool   `json:"isExistingPhone"`
	ExistingPrize   *Prize `json:"existingPrize,omitempty"`
}

type SpinResult struct {
	Status string `json:"status"`
	Prize  Prize  `json:"prize"`
}

func (r SpinResult) AlreadySpun() bool { return r.Status == "already_spun" }

type Entry struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	PrizeLabel  prize.Label `json:"prizeLabel,omitempty"`
	PrizeAmount int64       `json:"prizeAmount,omitempty"`
	SpunAt      *time.Time  `json:"spunAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, header http.Header) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	return json.Unmarshal(data, out)
}

func (c *Client) Register(ctx context.Context, name, phone string) (*Registration, error) {
	var out Registration
	err := c.do(ctx, http.MethodPost, "/api/register", map[string]string{"name": name, "phone": phone}, &out, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Spin requests the participant's prize. Unknown participants yield an error
// matching ErrNotFound.
func (c *Client) Spin(ctx context.Context, participantID string) (*SpinResult, error) {
	var out SpinResult
	err := c.do(ctx, http.MethodPost, "/api/spin", map[string]string{"participantId": participantID}, &out, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, participantID)
		}
		return nil, err
	}
	return &out, nil
}

// Prizes fetches the catalog geometry and rebuilds the catalog locally.
func (c *Client) Prizes(ctx context.Context) (*prize.Catalog, error) {
	var out struct {
		Segments []prize.Segment `json:"segments"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/prizes", nil, &out, nil); err != nil {
		return nil, err
	}
	tiers := make([]prize.Tier, len(out.Segments))
	for i, s := range out.Segments {
		tiers[i] = s.Tier
	}
	return prize.NewCatalog(tiers)
}

// Entries returns the admin listing.
func (c *Client) Entries(ctx context.Context, passcode string) ([]Entry, error) {
	var out struct {
		Entries []Entry `json:"entries"`
	}
	h := http.Header{}
	h.Set("X-Admin-Passcode", passcode)
	if err := c.do(ctx, http.MethodGet, "/api/admin/entries", nil, &out, h); err != nil {
		return nil, err
	}
	return out.Entries, nil
}
