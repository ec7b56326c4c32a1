package generator

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/config"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
)

// Gemini generates formulations through the Google GenAI API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini-backed generator from LLM config.
func NewGemini(ctx context.Context, cfg config.LLMConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured: set GEMINI_API_KEY or llm.api_key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	timeout := 120 * time.Second
	if cfg.Timeout != "" {
		if d, perr := time.ParseDuration(cfg.Timeout); perr == nil && d > 0 {
			timeout = d
		}
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-pro"
	}

	logging.Generator("gemini generator ready: model=%s timeout=%v", model, timeout)
	return &Gemini{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

// Generate sends history plus the new prompt and returns the response text.
func (g *Gemini) Generate(ctx context.Context, history []Turn, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	timer := logging.StartTimer(logging.CategoryGenerator, "Generate")
	defer timer.StopWithThreshold(g.timeout / 2)

	contents := make([]*genai.Content, 0, 2*len(history)+1)
	for _, turn := range history {
		contents = append(contents,
			genai.NewContentFromText(turn.Prompt, genai.RoleUser),
			genai.NewContentFromText(turn.Response, genai.RoleModel),
		)
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		logging.GeneratorError("GenerateContent: %v", err)
		return "", &GenerationError{Op: "generate_content", Err: err}
	}

	text := resp.Text()
	logging.GeneratorDebug("received %d bytes from %s", len(text), g.model)
	return text, nil
}
