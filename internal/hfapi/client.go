// Package hfapi is a minimal client for the Hugging Face Inference API,
// covering the two endpoints mailsift uses: zero-shot classification and
// text generation.
package hfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api-inference.huggingface.co/models"

// Client talks to the Hugging Face Inference API. A 503 means the model is
// still loading on their side; callers get exactly one delayed retry.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	loadWait   time.Duration
}

func NewClient(apiKey string, timeout, loadWait time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		loadWait:   loadWait,
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

// ZeroShotResult holds the parallel label/score lists returned by zero-shot
// classification, ordered by descending score.
type ZeroShotResult struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Best returns the top label and its score.
func (r ZeroShotResult) Best() (string, float64, error) {
	if len(r.Labels) == 0 || len(r.Scores) == 0 {
		return "", 0, fmt.Errorf("empty zero-shot response")
	}
	best := 0
	for i, s := range r.Scores {
		if s > r.Scores[best] {
			best = i
		}
	}
	if best >= len(r.Labels) {
		return "", 0, fmt.Errorf("label/score length mismatch")
	}
	return r.Labels[best], r.Scores[best], nil
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

// ZeroShot classifies text against the candidate labels using the given model.
func (c *Client) ZeroShot(ctx context.Context, model, text string, labels []string) (ZeroShotResult, error) {
	body := zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: labels, MultiLabel: false},
	}

	data, err := c.post(ctx, model, body)
	if err != nil {
		return ZeroShotResult{}, err
	}

	var result ZeroShotResult
	if err := json.Unmarshal(data, &result); err != nil {
		return ZeroShotResult{}, fmt.Errorf("parsing zero-shot response: %w", err)
	}
	if len(result.Labels) == 0 || len(result.Scores) == 0 {
		return ZeroShotResult{}, fmt.Errorf("zero-shot response missing labels or scores")
	}
	return result, nil
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Generate produces a completion for prompt with the given model.
func (c *Client) Generate(ctx context.Context, model, prompt string, maxNewTokens int, temperature float64) (string, error) {
	body := generateRequest{
		Inputs: prompt,
		Parameters: generateParameters{
			MaxNewTokens:   maxNewTokens,
			Temperature:    temperature,
			DoSample:       true,
			ReturnFullText: false,
		},
	}

	data, err := c.post(ctx, model, body)
	if err != nil {
		return "", err
	}

	var results []generateResponse
	if err := json.Unmarshal(data, &results); err != nil {
		return "", fmt.Errorf("parsing generation response: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("empty generation response")
	}
	return results[0].GeneratedText, nil
}

// post sends the request, retrying once after loadWait when the model is
// still loading (HTTP 503).
func (c *Client) post(ctx context.Context, model string, body any) ([]byte, error) {
	data, status, err := c.doOnce(ctx, model, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusServiceUnavailable {
		log.Printf("hf model %s loading, retrying in %s", model, c.loadWait)
		select {
		case <-time.After(c.loadWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		data, status, err = c.doOnce(ctx, model, body)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("hf model %s returned status %d: %s", model, status, truncate(string(data), 200))
	}
	return data, nil
}

func (c *Client) doOnce(ctx context.Context, model string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+model, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("hf request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	return data, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
