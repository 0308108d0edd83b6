// AngelaMos | 2026
// provider.go

package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/carterperez-dev/templates/tutor-backend/internal/config"
)

// Prompt is one tutoring request as handed to an answer provider.
type Prompt struct {
	System   string
	Question string
	Language string
}

type Provider interface {
	Name() string
	Answer(ctx context.Context, p Prompt) (string, error)
}

var errEmptyAnswer = errors.New("provider returned no text")

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) Answer(ctx context.Context, p Prompt) (string, error) {
	var cfg *genai.GenerateContentConfig
	if p.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		}
	}

	result, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(p.Question),
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errEmptyAnswer
	}

	return text, nil
}

// EchoProvider answers without any network call. It backs local
// development and tests.
type EchoProvider struct{}

func (EchoProvider) Name() string {
	return "echo"
}

func (EchoProvider) Answer(_ context.Context, p Prompt) (string, error) {
	if strings.TrimSpace(p.Question) == "" {
		return "", errEmptyAnswer
	}
	return fmt.Sprintf("[%s] You asked: %s", p.Language, p.Question), nil
}

func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "echo", "":
		return EchoProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
