// Package httpsource implements ingress.Source over net/http, grounded
// on stream_from_api.py's two modes: FetchOne polls a single-record
// endpoint once per call; FetchMany reads a Server-Sent Events response
// and collects up to n "data:" records. No third-party HTTP client is
// used — the teacher and the rest of the example pack reach for plain
// net/http wherever they touch HTTP, so this stays on stdlib too.
package httpsource

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Source polls url for records, either one at a time (FetchOne) or as
// a batch read from an SSE stream (FetchMany).
type Source struct {
	url    string
	client *http.Client
}

// New builds a Source against url with a bounded per-request timeout,
// the same defensive default the pack's webhook transport uses for its
// outbound client.
func New(url string) *Source {
	return &Source{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchOne issues a single GET and decodes the response body as one
// JSON object, mirroring stream_data()'s per-record polling loop.
func (s *Source) FetchOne(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpsource: building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpsource: fetching %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpsource: %s returned status %d", s.url, resp.StatusCode)
	}

	var record map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("httpsource: decoding response body: %w", err)
	}
	return record, nil
}

// FetchMany issues one GET and reads the response as a Server-Sent
// Events stream, decoding each "data:" line as one JSON record, up to
// n records. Fewer than n records is not an error: the stream may
// legitimately end first, matching stream_batch()'s best-effort
// collection loop.
func (s *Source) FetchMany(ctx context.Context, n int) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpsource: building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpsource: fetching %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpsource: %s returned status %d", s.url, resp.StatusCode)
	}

	records := make([]map[string]any, 0, n)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() && len(records) < n {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("httpsource: reading SSE stream: %w", err)
	}
	return records, nil
}
