// Package httpmodel adapts a JSON-over-HTTP model bridge to the ai.Model
// contract. Provider-specific prompting lives in the bridge service; this
// client only speaks the bridge's generate and solve endpoints.
package httpmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dailystump/stumpd/internal/services/puzzle/ai"
	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
)

// Client calls one model bridge. Implements ai.Model.
type Client struct {
	id       string
	baseURL  string
	httpDoer *http.Client
}

var _ ai.Model = (*Client)(nil)

// New builds a bridge client. A nil http.Client uses http.DefaultClient;
// call deadlines come from the request context, not the client.
func New(id, baseURL string, httpClient *http.Client) (*Client, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("model id is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("model %s: endpoint is required", id)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{id: id, baseURL: baseURL, httpDoer: httpClient}, nil
}

// ID returns the roster identifier this client was registered under.
func (c *Client) ID() string {
	return c.id
}

type generateRequest struct {
	Category   string  `json:"category"`
	Difficulty float64 `json:"difficulty"`
}

type generateResponse struct {
	Question    string   `json:"question"`
	Solution    string   `json:"solution"`
	Interaction string   `json:"interaction"`
	Explanation string   `json:"explanation,omitempty"`
	MediaURL    string   `json:"media_url,omitempty"`
	Hints       []string `json:"hints,omitempty"`
}

// Generate asks the bridge for a candidate puzzle.
func (c *Client) Generate(ctx context.Context, category domain.Category, difficulty float64) (ai.Candidate, error) {
	var resp generateResponse
	err := c.post(ctx, "/generate", generateRequest{
		Category:   string(category),
		Difficulty: difficulty,
	}, &resp)
	if err != nil {
		return ai.Candidate{}, err
	}
	return ai.Candidate{
		Question:    resp.Question,
		Solution:    resp.Solution,
		Interaction: domain.Interaction(resp.Interaction),
		Explanation: resp.Explanation,
		MediaURL:    resp.MediaURL,
		Hints:       resp.Hints,
	}, nil
}

type solveRequest struct {
	Question    string `json:"question"`
	Interaction string `json:"interaction"`
}

type solveResponse struct {
	Answer string `json:"answer"`
}

// Solve asks the bridge to answer a puzzle question.
func (c *Client) Solve(ctx context.Context, question string, interaction domain.Interaction) (string, error) {
	var resp solveResponse
	err := c.post(ctx, "/solve", solveRequest{
		Question:    question,
		Interaction: string(interaction),
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("model %s: encode request: %w", c.id, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("model %s: build request: %w", c.id, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpDoer.Do(req)
	if err != nil {
		return fmt.Errorf("model %s: call %s: %w", c.id, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("model %s: %s returned %d: %s", c.id, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("model %s: decode %s response: %w", c.id, path, err)
	}
	return nil
}
