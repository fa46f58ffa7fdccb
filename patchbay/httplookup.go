package patchbay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LookupResponse is the body served by a track lookup endpoint.
type LookupResponse struct {
	Tracks map[string]TrackRecord `json:"tracks"`
}

// HTTPLookup resolves ids against an HTTP endpoint with
// GET {Endpoint}?ids=a,b,c.
type HTTPLookup struct {
	Endpoint string
	Client   *http.Client
}

func (h *HTTPLookup) Lookup(ctx context.Context, ids []string) (map[string]TrackRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Add("ids", strings.Join(ids, ","))
	req.URL.RawQuery = q.Encode()

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup endpoint replied %d", resp.StatusCode)
	}

	var body LookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}
	if body.Tracks == nil {
		body.Tracks = make(map[string]TrackRecord)
	}
	return body.Tracks, nil
}
