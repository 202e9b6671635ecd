package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agromind/agromind-backend/internal/model"
)

// Client speaks the device side of the backend HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}
}

// PollResponse is the backend's answer to a sensor report.
type PollResponse struct {
	Success  bool                `json:"success"`
	Commands model.DeviceCommand `json:"commands"`
}

// GetZone fetches the zone record, used once to seed the device state.
func (c *Client) GetZone(ctx context.Context, zoneID int64) (model.Zone, error) {
	var zone model.Zone
	url := fmt.Sprintf("%s/api/zones/detail/%d", c.baseURL, zoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return zone, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zone, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return zone, httpError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&zone); err != nil {
		return zone, fmt.Errorf("decode zone %d: %w", zoneID, err)
	}
	return zone, nil
}

// ReportSensorData pushes one reading and returns the command block.
func (c *Client) ReportSensorData(ctx context.Context, zoneID int64, update model.SensorUpdate) (PollResponse, error) {
	var out PollResponse
	payload, err := json.Marshal(map[string]any{
		"zoneId":  zoneID,
		"sensors": update,
	})
	if err != nil {
		return out, err
	}

	url := c.baseURL + "/api/iot/sensor-data"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, httpError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode poll response: %w", err)
	}
	return out, nil
}

func httpError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("backend HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
