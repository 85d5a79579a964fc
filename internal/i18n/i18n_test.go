package i18n

import (
	"context"
	"testing"
)

func TestTranslations(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tests := []struct {
		lang  string
		msgID string
		want  string
	}{
		{"en", "LoginError", "Invalid email or password."},
		{"ru", "LoginError", "Неверный email или пароль."},
		{"en", "ExamPublished", "Exam published!"},
		{"ru", "ExamPublished", "Экзамен опубликован!"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.msgID, func(t *testing.T) {
			ctx := WithLocalizer(context.Background(), NewLocalizer(tt.lang))
			if got := T(ctx, tt.msgID); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.msgID, got, tt.want)
			}
		})
	}
}

func TestTdTemplateData(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
	got := Td(ctx, "ScoreResult", map[string]any{"Score": 7, "Total": 10})
	if got != "MCQ score: 7 / 10" {
		t.Errorf("Td = %q", got)
	}
}

func TestMissingTranslationFallsBack(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
	if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("expected message ID fallback, got %q", got)
	}
}

func TestContextWithoutLocalizer(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// A bare context falls back to the English localizer.
	if got := T(context.Background(), "LoginError"); got != "Invalid email or password." {
		t.Errorf("T = %q", got)
	}
}
