package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Gateway posts an action payload to a downstream endpoint. It never
// fails the routing operation: transport problems are folded into the
// returned response map.
type Gateway interface {
	Post(ctx context.Context, endpoint string, payload map[string]any) map[string]any
}

// SimulatedGateway fabricates a successful downstream response without
// any network call. It is the default: the design deliberately does not
// model downstream failure.
type SimulatedGateway struct {
	now func() time.Time
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{now: time.Now}
}

func (g *SimulatedGateway) Post(ctx context.Context, endpoint string, payload map[string]any) map[string]any {
	log.Info().Str("endpoint", endpoint).Msg("simulating downstream POST")
	return map[string]any{
		"status":           "success",
		"message":          "Action triggered successfully for " + endpoint,
		"received_payload": payload,
		"timestamp":        g.now().Unix(),
	}
}

type GatewayConfig struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// HTTPGateway posts action payloads to a real downstream base URL. A
// deployment substitutes it for SimulatedGateway without touching the
// routing table.
type HTTPGateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPGateway(cfg GatewayConfig) (*HTTPGateway, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("gateway base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (g *HTTPGateway) Post(ctx context.Context, endpoint string, payload map[string]any) map[string]any {
	body, err := json.Marshal(payload)
	if err != nil {
		return errorResponse("marshal payload: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return errorResponse("build request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("downstream POST failed")
		return errorResponse(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errorResponse("read response: " + err.Error())
	}

	var parsed map[string]any
	if json.Unmarshal(raw, &parsed) != nil {
		parsed = map[string]any{"body": string(raw)}
	}
	// A literal null body unmarshals without error but leaves the map nil.
	if parsed == nil {
		parsed = map[string]any{}
	}
	parsed["status_code"] = resp.StatusCode
	if _, ok := parsed["status"]; !ok {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			parsed["status"] = "success"
		} else {
			parsed["status"] = "error"
		}
	}
	return parsed
}

func errorResponse(message string) map[string]any {
	return map[string]any{
		"status":  "error",
		"message": message,
	}
}
