package gcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/slidedeckflow/internal/llm"
)

// VertexClient owns the Vertex AI connection shared by every Gemini model the
// pipeline uses.
type VertexClient struct {
	baseClient *genai.Client
}

// NewVertexClient connects to Vertex AI in the given project and region.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexClient{baseClient: baseClient}, nil
}

// Model returns an llm.Client bound to one Gemini model.
func (c *VertexClient) Model(cfg llm.ModelConfig) llm.Client {
	return &vertexModel{base: c.baseClient, cfg: cfg}
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

type vertexModel struct {
	base *genai.Client
	cfg  llm.ModelConfig
}

// configure builds a fresh GenerativeModel per request; GenerativeModel carries
// the system instruction, so it cannot be shared between concurrent calls.
func (m *vertexModel) configure(system string, jsonOut bool) *genai.GenerativeModel {
	model := m.base.GenerativeModel(m.cfg.Name)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	if m.cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(m.cfg.MaxTokens))
	}
	if m.cfg.Temperature != nil {
		model.SetTemperature(*m.cfg.Temperature)
	}
	if jsonOut {
		model.ResponseMIMEType = "application/json"
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockOnlyHigh},
	}
	return model
}

// Complete maps the conversation onto Gemini: system messages become the
// system instruction, earlier turns become chat history and the final user
// message is sent.
func (m *vertexModel) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}

	var system []string
	var turns []*genai.Content
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			system = append(system, msg.Text())
			continue
		}
		parts, err := toGenaiParts(msg.Parts)
		if err != nil {
			return "", err
		}
		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "model"
		}
		turns = append(turns, &genai.Content{Role: role, Parts: parts})
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != "user" {
		return "", fmt.Errorf("conversation must end with a user message")
	}

	model := m.configure(strings.Join(system, "\n\n"), req.JSON)
	last := turns[len(turns)-1]

	var resp *genai.GenerateContentResponse
	var err error
	if len(turns) == 1 {
		resp, err = model.GenerateContent(ctx, last.Parts...)
	} else {
		cs := model.StartChat()
		cs.History = turns[:len(turns)-1]
		resp, err = cs.SendMessage(ctx, last.Parts...)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func toGenaiParts(parts []llm.Part) ([]genai.Part, error) {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Image == nil {
			out = append(out, genai.Text(p.Text))
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.Image.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image attachment: %w", err)
		}
		out = append(out, genai.Blob{MIMEType: p.Image.MIMEType, Data: data})
	}
	return out, nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
