package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"lastmile-route-service/internal/domain"
	"lastmile-route-service/internal/ports"
)

// ORSMatrixClient fetches full NxN travel matrices from an
// OpenRouteService-compatible matrix endpoint.
//
// The client is safe for concurrent use.
type ORSMatrixClient struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
}

func NewORSMatrixClient(baseURL, apiKey string) (*ORSMatrixClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("matrix api key is empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.openrouteservice.org"
	}

	return &ORSMatrixClient{
		session: &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving-car",
	}, nil
}

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
	Units     string      `json:"units"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// FetchMatrix retrieves distances (km) and durations for all pairs of
// locs in a single batched request, converting durations to minutes.
// The result is symmetrized so D[i][j] == D[j][i] holds for downstream
// edge arithmetic.
func (o *ORSMatrixClient) FetchMatrix(ctx context.Context, locs []domain.Location) (*ports.Matrix, error) {
	if len(locs) == 0 {
		return nil, errors.New("fetch matrix: empty location list")
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	locations := make([][]float64, 0, len(locs))
	for _, l := range locs {
		locations = append(locations, l.LngLat())
	}

	payload, err := json.Marshal(matrixRequest{
		Locations: locations,
		Metrics:   []string{"distance", "duration"},
		Units:     "km",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	n := len(locs)
	if len(mr.Distances) != n || len(mr.Durations) != n {
		return nil, fmt.Errorf(
			"matrix row count mismatch: distances=%d durations=%d locations=%d",
			len(mr.Distances), len(mr.Durations), n,
		)
	}

	dist := make([][]float64, n)
	timeMin := make([][]float64, n)
	for i := 0; i < n; i++ {
		if len(mr.Distances[i]) != n || len(mr.Durations[i]) != n {
			return nil, fmt.Errorf("matrix column count mismatch in row %d", i)
		}
		dist[i] = make([]float64, n)
		timeMin[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			dPtr, tPtr := mr.Distances[i][j], mr.Durations[i][j]
			if dPtr == nil || tPtr == nil {
				return nil, fmt.Errorf("matrix returned unroutable pair (%d, %d)", i, j)
			}
			dist[i][j] = *dPtr
			timeMin[i][j] = *tPtr / 60.0
		}
	}

	symmetrize(dist)
	symmetrize(timeMin)

	return &ports.Matrix{DistKm: dist, TimeMin: timeMin}, nil
}

// Road networks are not perfectly symmetric; average the two directions
// and force zero diagonals so the matrix meets the builder contract.
func symmetrize(m [][]float64) {
	for i := range m {
		m[i][i] = 0
		for j := i + 1; j < len(m); j++ {
			avg := (m[i][j] + m[j][i]) / 2
			m[i][j], m[j][i] = avg, avg
		}
	}
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (o *ORSMatrixClient) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (o *ORSMatrixClient) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429/5xx)
// using exponential backoff while respecting context cancellation.
func (o *ORSMatrixClient) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	const maxAttempts = 3
	backoff := 200 * time.Millisecond

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := o.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}

		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}
