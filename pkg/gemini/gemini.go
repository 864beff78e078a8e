// Package gemini calls the Google Generative Language REST API for text
// generation and embeddings. Requests are rate limited client-side and
// generation runs behind a circuit breaker.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/RNS-Forge/Collexa.AI/engine/domain"
	"github.com/RNS-Forge/Collexa.AI/pkg/resilience"
)

const (
	defaultBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	defaultGenModel = "gemini-1.5-flash"
	defaultEmbModel = "text-embedding-004"
)

// Client is a Gemini API client. A nil Client must not be used; callers that
// run without an API key should wire no client at all.
type Client struct {
	apiKey   string
	baseURL  string
	genModel string
	embModel string
	http     *http.Client

	genLimit *rate.Limiter
	embLimit *rate.Limiter
	breaker  *resilience.Breaker
}

// Option adjusts a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithModels overrides the generation and embedding model names.
func WithModels(gen, emb string) Option {
	return func(c *Client) {
		c.genModel = gen
		c.embModel = emb
	}
}

// New builds a client for the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		genModel: defaultGenModel,
		embModel: defaultEmbModel,
		http:     &http.Client{Timeout: 60 * time.Second},
		// Generation is the expensive call, keep it around one per second.
		genLimit: rate.NewLimiter(rate.Every(time.Second), 2),
		embLimit: rate.NewLimiter(rate.Every(50*time.Millisecond), 20),
		breaker:  resilience.NewBreaker(resilience.DefaultOpts),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Generate produces a completion for the prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.genLimit.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	var out generateResponse
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		body := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
		return c.post(ctx, "models/"+c.genModel+":generateContent", body, &out)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty candidate list", domain.ErrGeneration)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// Embed produces an embedding vector for the text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrEmbedding)
	}
	if err := c.embLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	body := embedRequest{Model: "models/" + c.embModel, Content: content{Parts: []part{{Text: text}}}}
	var out embedResponse
	if err := c.post(ctx, "models/"+c.embModel+":embedContent", body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(out.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrEmbedding)
	}
	return out.Embedding.Values, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, path, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gemini status %d: %s", resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gemini decode: %w", err)
	}
	return nil
}
