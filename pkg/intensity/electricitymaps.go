package intensity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultElectricityMapsURL is the v3 API root.
const DefaultElectricityMapsURL = "https://api.electricitymap.org/v3"

// ElectricityMaps queries the Electricity Maps "latest carbon intensity"
// endpoint: GET {base}/carbon-intensity/latest?zone=DE with an auth-token
// header.
type ElectricityMaps struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewElectricityMaps returns a client. baseURL "" means DefaultElectricityMapsURL;
// a nil client gets a 5 second timeout.
func NewElectricityMaps(baseURL, token string, client *http.Client) *ElectricityMaps {
	if baseURL == "" {
		baseURL = DefaultElectricityMapsURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &ElectricityMaps{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

type latestResponse struct {
	Zone            string   `json:"zone"`
	CarbonIntensity *float64 `json:"carbonIntensity"`
	Datetime        string   `json:"datetime"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Intensity implements Provider.
func (e *ElectricityMaps) Intensity(ctx context.Context, zone string) (float64, error) {
	if Normalize(zone) == GlobalZone {
		// not an Electricity Maps zone
		return 0, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}

	u := e.baseURL + "/carbon-intensity/latest?" + url.Values{"zone": {Normalize(zone)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("electricitymaps: build request: %w", err)
	}
	if e.token != "" {
		req.Header.Set("auth-token", e.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("electricitymaps: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("electricitymaps: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		_ = json.Unmarshal(body, &er)
		msg := er.Message
		if msg == "" {
			msg = er.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return 0, fmt.Errorf("%w: %q: %s", ErrUnknownZone, zone, msg)
		}
		return 0, fmt.Errorf("%w: %s: %s", ErrUpstream, resp.Status, msg)
	}

	var lr latestResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return 0, fmt.Errorf("electricitymaps: decode: %w", err)
	}
	if lr.CarbonIntensity == nil || !(*lr.CarbonIntensity > 0) {
		return 0, fmt.Errorf("%w: zone %q", ErrBadIntensity, zone)
	}
	return *lr.CarbonIntensity, nil
}
