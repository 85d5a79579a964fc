package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"

	"github.com/studyforge/examgen/internal/llm/prompts"
	"github.com/studyforge/examgen/internal/model"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"bare object",
			`{"mcqs": []}`,
			`{"mcqs": []}`,
		},
		{
			"json code fence",
			"```json\n{\"mcqs\": []}\n```",
			`{"mcqs": []}`,
		},
		{
			"plain code fence",
			"```\n{\"mcqs\": []}\n```",
			`{"mcqs": []}`,
		},
		{
			"surrounding prose",
			"Here is your exam:\n{\"mcqs\": []}\nGood luck!",
			`{"mcqs": []}`,
		},
		{
			"no object",
			"I could not generate an exam.",
			"",
		},
		{
			"empty",
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExamSystemPrompt(t *testing.T) {
	p := prompts.ExamSystem(model.GenerationSpec{NumMCQ: 10, NumShort: 3, NumLong: 2})

	for _, want := range []string{
		"10 Multiple Choice Questions",
		"3 Short Answer Questions",
		"2 Long Answer Questions",
		`"mcqs"`,
		`"short"`,
		`"long"`,
		"strictly valid JSON",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("exam prompt missing %q", want)
		}
	}
}

func TestAddQuestionPrompts(t *testing.T) {
	sys := prompts.AddQuestionSystem(model.QuestionMCQ)
	if !strings.Contains(sys, "1 NEW Multiple Choice question") {
		t.Errorf("unexpected system prompt %q", sys)
	}

	user := prompts.AddQuestionUser(model.QuestionMCQ)
	if !strings.Contains(user, `"options"`) || !strings.Contains(user, `"correct"`) {
		t.Errorf("MCQ user prompt must request options and correct, got %q", user)
	}

	user = prompts.AddQuestionUser(model.QuestionShort)
	if strings.Contains(user, `"options"`) {
		t.Errorf("written question prompt must not request options, got %q", user)
	}
}

// seqGetter returns the given file states one per call, repeating the last
// one once exhausted.
func seqGetter(t *testing.T, states ...genai.FileState) func(context.Context, string) (*genai.File, error) {
	t.Helper()
	call := 0
	return func(_ context.Context, name string) (*genai.File, error) {
		state := states[len(states)-1]
		if call < len(states) {
			state = states[call]
		}
		call++
		return &genai.File{Name: name, State: state}, nil
	}
}

func TestAwaitProcessingActiveImmediately(t *testing.T) {
	f := &genai.File{Name: "files/ready", State: genai.FileStateActive}
	got, err := awaitProcessing(context.Background(), f,
		func(context.Context, string) (*genai.File, error) {
			t.Fatal("get must not be called for an already active file")
			return nil, nil
		},
		time.Millisecond, 3)
	if err != nil {
		t.Fatalf("awaitProcessing: %v", err)
	}
	if got != f {
		t.Error("active file should be returned unchanged")
	}
}

func TestAwaitProcessingBecomesActive(t *testing.T) {
	f := &genai.File{Name: "files/slow", State: genai.FileStateProcessing}
	got, err := awaitProcessing(context.Background(), f,
		seqGetter(t, genai.FileStateProcessing, genai.FileStateActive),
		time.Millisecond, 10)
	if err != nil {
		t.Fatalf("awaitProcessing: %v", err)
	}
	if got.State != genai.FileStateActive {
		t.Errorf("state = %v, want active", got.State)
	}
}

func TestAwaitProcessingFailedFile(t *testing.T) {
	f := &genai.File{Name: "files/bad", State: genai.FileStateProcessing}
	_, err := awaitProcessing(context.Background(), f,
		seqGetter(t, genai.FileStateFailed),
		time.Millisecond, 10)
	if err == nil {
		t.Fatal("expected error for failed file")
	}
	if !strings.Contains(err.Error(), "processing failed") {
		t.Errorf("error = %v, want processing failure", err)
	}
}

func TestAwaitProcessingTimeout(t *testing.T) {
	f := &genai.File{Name: "files/stuck", State: genai.FileStateProcessing}
	_, err := awaitProcessing(context.Background(), f,
		seqGetter(t, genai.FileStateProcessing),
		time.Millisecond, 3)
	if !errors.Is(err, ErrUploadTimeout) {
		t.Errorf("error = %v, want ErrUploadTimeout", err)
	}
}

func TestAwaitProcessingContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &genai.File{Name: "files/stuck", State: genai.FileStateProcessing}
	_, err := awaitProcessing(ctx, f,
		seqGetter(t, genai.FileStateProcessing),
		time.Hour, 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
