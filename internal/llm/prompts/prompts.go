// Package prompts builds the system instructions sent to the model.
package prompts

import (
	"fmt"
	"strings"

	"github.com/studyforge/examgen/internal/model"
)

// ExamSystem returns the system instruction for generating a full exam
// paper from the provided source materials.
func ExamSystem(spec model.GenerationSpec) string {
	var sb strings.Builder
	sb.WriteString("You are an expert teacher. Create an exam paper based ONLY on the provided documents.\n")
	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("1. Create %d Multiple Choice Questions (MCQs). Each carries 1 mark. Provide 4 options and the correct answer.\n", spec.NumMCQ))
	sb.WriteString(fmt.Sprintf("2. Create %d Short Answer Questions. Each carries 2 marks.\n", spec.NumShort))
	sb.WriteString(fmt.Sprintf("3. Create %d Long Answer Questions. Each carries 3 marks.\n", spec.NumLong))
	sb.WriteString("Output Format: strictly valid JSON.\n")
	sb.WriteString(`{ "mcqs": [ {"question": "...", "options": ["A", "B", "C", "D"], "correct": "A", "marks": 1} ], "short": [ {"question": "...", "marks": 2} ], "long": [ {"question": "...", "marks": 3} ] }`)
	sb.WriteString("\n")
	return sb.String()
}

// AddQuestionSystem returns the system instruction for generating one
// additional question of the given type.
func AddQuestionSystem(t model.QuestionType) string {
	return fmt.Sprintf("Generate 1 NEW %s question based ONLY on the provided documents, different from existing ones.", label(t))
}

// AddQuestionUser returns the trailing user prompt fixing the reply shape.
func AddQuestionUser(t model.QuestionType) string {
	if t == model.QuestionMCQ {
		return `Return JSON: { "question": "...", "options": ["A", "B", "C", "D"], "correct": "A", "marks": 1 }`
	}
	return `Return JSON: { "question": "...", "marks": 1 }`
}

func label(t model.QuestionType) string {
	switch t {
	case model.QuestionMCQ:
		return "Multiple Choice"
	case model.QuestionShort:
		return "Short Answer"
	case model.QuestionLong:
		return "Long Answer"
	}
	return string(t)
}
