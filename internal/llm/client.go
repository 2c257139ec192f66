package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

const (
	openRouterURL = "https://openrouter.ai/api/v1"
	openAIURL     = "https://api.openai.com/v1"
	defaultModel  = "openai/gpt-4.1-mini"
)

// Client talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter by default).
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
}

// ClientConfig configures a Client.
type ClientConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	HTTPClient  *http.Client
}

// Request represents the API request structure
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	TopP           *float64        `json:"top_p,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat asks the backend for JSON matching a schema.
type ResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *JSONSchemaSpec `json:"json_schema,omitempty"`
}

// JSONSchemaSpec names the schema sent with a request.
type JSONSchemaSpec struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

// Response represents the API response structure
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage is the assistant reply of a choice.
type ChoiceMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new chat completions client
func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openRouterURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		httpClient:  httpClient,
	}
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.model
}

// Extract sends one chat completion asking for schema and decodes the reply.
func (c *Client) Extract(ctx context.Context, messages []Message, schema Schema, opts ...CallOption) (Output, error) {
	req, err := c.buildRequest(messages, schema, applyOptions(opts))
	if err != nil {
		return nil, domain.APIError("Failed to build request", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, domain.APIError("Failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, domain.APIError("Failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/spherical/disclosure-extractor")
	httpReq.Header.Set("X-Title", "Disclosure Extractor")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.APIError("Failed to send request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.APIError("Failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.APIError("Request rejected", &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)})
	}

	var parsed Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, domain.APIError("Failed to parse response", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, domain.APIError("Response has no choices", nil)
	}

	return Decode(schema, parsed.Choices[0].Message.Content)
}

func (c *Client) buildRequest(messages []Message, schema Schema, opts CallOptions) (*Request, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages")
	}
	js, ok := JSONSchema(schema)
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", schema)
	}

	return &Request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		TopP:        opts.TopP,
		ResponseFormat: &ResponseFormat{
			Type:       "json_schema",
			JSONSchema: &JSONSchemaSpec{Name: string(schema), Schema: js},
		},
	}, nil
}
