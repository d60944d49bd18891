package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultBaseURL is the production host of the feeds.
const DefaultBaseURL = "https://www.keihan.co.jp"

const (
	pathStations      = "/zaisen/select_station.json"
	pathTransferGuide = "/zaisen/transferGuideInfo.json"
	pathPositions     = "/zaisen-up/trainPositionList.json"
	pathSchedule      = "/zaisen-up/startTimeList.json"
)

// Client fetches the Keihan feeds over HTTP and validates the decoded
// payloads. A zero timeout leaves the HTTP client without one.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
}

// NewClient creates a client against baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Stations fetches the reference station list.
func (c *Client) Stations(ctx context.Context) (StationList, error) {
	var out StationList
	if err := c.getJSON(ctx, pathStations, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TransferGuide fetches the per-station transfer information.
func (c *Client) TransferGuide(ctx context.Context) (TransferGuide, error) {
	var out TransferGuide
	if err := c.getJSON(ctx, pathTransferGuide, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Positions fetches the live train position list.
func (c *Client) Positions(ctx context.Context) (*TrainPositionList, error) {
	var out TrainPositionList
	if err := c.getJSON(ctx, pathPositions, &out); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("invalid position feed: %w", err)
	}
	return &out, nil
}

// Schedule fetches the per-train schedule list.
func (c *Client) Schedule(ctx context.Context) (*StartTimeList, error) {
	var out StartTimeList
	if err := c.getJSON(ctx, pathSchedule, &out); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("invalid schedule feed: %w", err)
	}
	return &out, nil
}
