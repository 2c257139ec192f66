package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient is a Service backed by the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient opens a Gemini client. Close releases it.
func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float64) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, domain.ConfigError("GEMINI_API_KEY is empty", nil)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, domain.APIError("create gemini client", err)
	}
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{client: cl, model: model, temperature: float32(temperature)}, nil
}

// Model returns the configured model name.
func (g *GeminiClient) Model() string {
	return g.model
}

// Close releases the underlying connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Extract sends the messages as one GenerateContent call. System messages and
// the JSON Schema become the system instruction; the rest are user parts.
func (g *GeminiClient) Extract(ctx context.Context, messages []Message, schema Schema, opts ...CallOption) (Output, error) {
	js, ok := JSONSchema(schema)
	if !ok {
		return nil, domain.APIError(fmt.Sprintf("unknown schema %q", schema), nil)
	}
	schemaJSON, err := json.Marshal(js)
	if err != nil {
		return nil, domain.APIError("marshal schema", err)
	}

	o := applyOptions(opts)
	m := g.client.GenerativeModel(g.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(g.temperature),
		ResponseMIMEType: "application/json",
	}
	if o.TopP != nil {
		m.GenerationConfig.TopP = ptrFloat32(float32(*o.TopP))
	}

	sys := []genai.Part{}
	var user []genai.Part
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			sys = append(sys, genai.Text(msg.Content))
			continue
		}
		user = append(user, genai.Text(msg.Content))
	}
	sys = append(sys, genai.Text(string(schema)+".schema.json:\n"+string(schemaJSON)))
	m.SystemInstruction = &genai.Content{Parts: sys}

	if len(user) == 0 {
		return nil, domain.APIError("no user message", nil)
	}

	resp, err := m.GenerateContent(ctx, user...)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, domain.APIError("gemini generate", err)
	}

	txt := firstText(resp)
	if txt == "" {
		return nil, domain.APIError("gemini: empty response", nil)
	}
	return Decode(schema, txt)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
