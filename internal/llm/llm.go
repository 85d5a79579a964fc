// Package llm wraps the Gemini SDK: exam generation with a JSON response
// type, and File API uploads with a poll loop for asynchronous processing.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/studyforge/examgen/internal/llm/prompts"
	"github.com/studyforge/examgen/internal/model"
)

const (
	// generateAttempts bounds the best-effort retry on generation calls.
	generateAttempts = 3
	retryDelay       = 2 * time.Second

	// uploadPollInterval and uploadMaxPolls bound the wait for the File
	// API to finish processing an uploaded document.
	uploadPollInterval = time.Second
	uploadMaxPolls     = 30
)

// ErrUploadTimeout is returned when an uploaded file stays in the
// processing state past the poll budget.
var ErrUploadTimeout = errors.New("timed out waiting for file processing")

// Client wraps a Gemini API client.
type Client struct {
	api       *genai.Client
	modelName string
}

// New creates a Gemini client.
func New(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	api, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{api: api, modelName: modelName}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.api.Close()
}

// Upload sends a local file to the File API and waits until the service
// finishes processing it, polling once per second. Returns the file part to
// reference in a generation call.
func (c *Client) Upload(ctx context.Context, path, mimeType string) (*genai.File, error) {
	f, err := c.api.UploadFileFromPath(ctx, path, &genai.UploadFileOptions{MIMEType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}
	f, err = awaitProcessing(ctx, f, c.api.GetFile, uploadPollInterval, uploadMaxPolls)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}
	return f, nil
}

// awaitProcessing polls the File API until the uploaded file leaves the
// processing state. A file that ends up failed, or stays processing past
// the poll budget, is an error.
func awaitProcessing(ctx context.Context, f *genai.File, get func(ctx context.Context, name string) (*genai.File, error), interval time.Duration, maxPolls int) (*genai.File, error) {
	name := f.Name
	for polls := 0; f.State == genai.FileStateProcessing; polls++ {
		if polls >= maxPolls {
			return nil, fmt.Errorf("%w: %s", ErrUploadTimeout, name)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		var err error
		f, err = get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("poll %s: %w", name, err)
		}
	}

	if f.State == genai.FileStateFailed {
		return nil, fmt.Errorf("file processing failed: %s", name)
	}
	return f, nil
}

// DeleteFile removes an uploaded file from the File API. Best-effort:
// failures are logged, not returned.
func (c *Client) DeleteFile(ctx context.Context, name string) {
	if err := c.api.DeleteFile(ctx, name); err != nil {
		slog.Warn("failed to delete uploaded file", "name", name, "error", err)
	}
}

// GenerateExam asks the model to produce a full exam paper from the given
// content parts. Retries a couple of times on transient failures.
func (c *Client) GenerateExam(ctx context.Context, parts []genai.Part, spec model.GenerationSpec) (*model.Exam, error) {
	m := c.api.GenerativeModel(c.modelName)
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompts.ExamSystem(spec))}}
	m.SetTemperature(0.2)

	raw, err := c.generate(ctx, m, parts)
	if err != nil {
		return nil, err
	}

	var exam model.Exam
	if err := json.Unmarshal([]byte(raw), &exam); err != nil {
		return nil, fmt.Errorf("parse exam response: %w", err)
	}
	if exam.Empty() {
		return nil, errors.New("model returned an empty exam")
	}
	exam.Normalize()
	return &exam, nil
}

// AddQuestion asks the model for one new question of the given type based
// on the same source materials.
func (c *Client) AddQuestion(ctx context.Context, parts []genai.Part, t model.QuestionType) (*model.GeneratedQuestion, error) {
	m := c.api.GenerativeModel(c.modelName)
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompts.AddQuestionSystem(t))}}
	m.SetTemperature(0.4)

	withPrompt := append(append([]genai.Part{}, parts...), genai.Text(prompts.AddQuestionUser(t)))
	raw, err := c.generate(ctx, m, withPrompt)
	if err != nil {
		return nil, err
	}

	var q model.GeneratedQuestion
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, fmt.Errorf("parse question response: %w", err)
	}
	if q.Question == "" {
		return nil, errors.New("model returned an empty question")
	}
	return &q, nil
}

// generate runs the model call with a small retry budget and returns the
// extracted JSON text of the first candidate.
func (c *Client) generate(ctx context.Context, m *genai.GenerativeModel, parts []genai.Part) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= generateAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = fmt.Errorf("generate content (attempt %d): %w", attempt, err)
			slog.Warn("generation attempt failed", "attempt", attempt, "error", err)
			continue
		}
		if resp.UsageMetadata != nil {
			slog.Debug("token usage",
				"prompt", resp.UsageMetadata.PromptTokenCount,
				"candidates", resp.UsageMetadata.CandidatesTokenCount,
				"total", resp.UsageMetadata.TotalTokenCount)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			lastErr = fmt.Errorf("no content generated (attempt %d)", attempt)
			continue
		}

		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		raw := ExtractJSON(sb.String())
		if raw == "" {
			lastErr = fmt.Errorf("no JSON in response (attempt %d)", attempt)
			continue
		}
		return raw, nil
	}
	return "", lastErr
}

// ExtractJSON strips markdown code fences and surrounding prose from model
// output, returning the outermost JSON object. Returns "" when no object
// is present.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if fenced, ok := strings.CutPrefix(text, "```json"); ok {
		text = fenced
	} else if fenced, ok := strings.CutPrefix(text, "```"); ok {
		text = fenced
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
