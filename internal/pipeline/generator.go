package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/user/markhub/internal/config"
)

// Pair is one generated question/answer.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PairGenerator produces Q&A pairs from markdown content.
type PairGenerator interface {
	GeneratePairs(ctx context.Context, markdown string) ([]Pair, error)
}

// LLMGenerator extracts pairs through a chat-completion provider.
type LLMGenerator struct {
	cfg *config.Config
}

func NewLLMGenerator(cfg *config.Config) *LLMGenerator {
	return &LLMGenerator{cfg: cfg}
}

const qaPrompt = `Read this content and extract the key facts a reader might later want to recall, as question/answer pairs.

Rules:
- Each question must be answerable from the content alone.
- Keep answers short and factual.
- If the content contains nothing worth recalling, return an empty array.

Respond with a JSON array only, no other text:
[{"question": "...", "answer": "..."}]

Content:
%s`

func (g *LLMGenerator) GeneratePairs(ctx context.Context, markdown string) ([]Pair, error) {
	// Truncate content for LLM
	const maxContentLen = 10000
	if len(markdown) > maxContentLen {
		markdown = markdown[:maxContentLen]
	}

	template := g.cfg.LLM.QAPrompt
	if template == "" {
		template = qaPrompt
	}
	prompt := fmt.Sprintf(template, markdown)

	var response string
	var err error

	switch g.cfg.LLM.Provider {
	case "anthropic":
		response, err = g.generateWithAnthropic(ctx, prompt)
	case "openai", "openrouter":
		response, err = g.generateWithOpenAI(ctx, prompt)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", g.cfg.LLM.Provider)
	}

	if err != nil {
		return nil, err
	}

	return parsePairs(response)
}

func (g *LLMGenerator) generateWithAnthropic(ctx context.Context, prompt string) (string, error) {
	apiKey := g.cfg.LLM.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	client := anthropic.NewClient(apiKey)

	resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(g.cfg.LLM.Model),
		MaxTokens: 2048,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}},
			},
		},
	})

	if err != nil {
		return "", err
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	return resp.Content[0].GetText(), nil
}

func (g *LLMGenerator) generateWithOpenAI(ctx context.Context, prompt string) (string, error) {
	var apiKey string
	var baseURL string

	if g.cfg.LLM.Provider == "openrouter" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
		baseURL = g.cfg.LLM.BaseURL
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
	} else {
		apiKey = g.cfg.LLM.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if apiKey == "" {
		return "", fmt.Errorf("API key not set for provider %s", g.cfg.LLM.Provider)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	client := openai.NewClientWithConfig(clientCfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.cfg.LLM.Model,
		MaxTokens: 2048,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})

	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// parsePairs pulls the JSON array out of a model response. Models
// sometimes wrap the array in a code fence or a line of prose.
func parsePairs(response string) ([]Pair, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var pairs []Pair
	if err := json.Unmarshal([]byte(response[start:end+1]), &pairs); err != nil {
		return nil, fmt.Errorf("failed to decode pairs: %w", err)
	}

	valid := pairs[:0]
	for _, p := range pairs {
		p.Question = strings.TrimSpace(p.Question)
		p.Answer = strings.TrimSpace(p.Answer)
		if p.Question != "" && p.Answer != "" {
			valid = append(valid, p)
		}
	}

	return valid, nil
}
