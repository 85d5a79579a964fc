package model

import (
	"reflect"
	"testing"
)

func TestMCQNormalize(t *testing.T) {
	tests := []struct {
		name        string
		in          MCQ
		wantOptions []string
		wantCorrect string
		wantMarks   int
	}{
		{
			name:        "already valid",
			in:          MCQ{Options: []string{"a", "b", "c", "d"}, Correct: "c", Marks: 2},
			wantOptions: []string{"a", "b", "c", "d"},
			wantCorrect: "c",
			wantMarks:   2,
		},
		{
			name:        "too few options padded",
			in:          MCQ{Options: []string{"a", "b"}, Correct: "b", Marks: 1},
			wantOptions: []string{"a", "b", "", ""},
			wantCorrect: "b",
			wantMarks:   1,
		},
		{
			name:        "too many options trimmed",
			in:          MCQ{Options: []string{"a", "b", "c", "d", "e"}, Correct: "e", Marks: 1},
			wantOptions: []string{"a", "b", "c", "d"},
			wantCorrect: "a",
			wantMarks:   1,
		},
		{
			name:        "correct not in options",
			in:          MCQ{Options: []string{"a", "b", "c", "d"}, Correct: "x", Marks: 1},
			wantOptions: []string{"a", "b", "c", "d"},
			wantCorrect: "a",
			wantMarks:   1,
		},
		{
			name:        "missing marks defaulted",
			in:          MCQ{Options: []string{"a", "b", "c", "d"}, Correct: "a"},
			wantOptions: []string{"a", "b", "c", "d"},
			wantCorrect: "a",
			wantMarks:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.in
			q.Normalize()
			if !reflect.DeepEqual(q.Options, tt.wantOptions) {
				t.Errorf("Options = %v, want %v", q.Options, tt.wantOptions)
			}
			if q.Correct != tt.wantCorrect {
				t.Errorf("Correct = %q, want %q", q.Correct, tt.wantCorrect)
			}
			if q.Marks != tt.wantMarks {
				t.Errorf("Marks = %d, want %d", q.Marks, tt.wantMarks)
			}
		})
	}
}

func TestExamNormalizeDefaultsWrittenMarks(t *testing.T) {
	e := Exam{
		Short: []WrittenQuestion{{Question: "s1"}, {Question: "s2", Marks: 5}},
		Long:  []WrittenQuestion{{Question: "l1"}},
	}
	e.Normalize()
	if e.Short[0].Marks != 2 {
		t.Errorf("short marks = %d, want 2", e.Short[0].Marks)
	}
	if e.Short[1].Marks != 5 {
		t.Errorf("short marks = %d, want 5 (explicit marks kept)", e.Short[1].Marks)
	}
	if e.Long[0].Marks != 3 {
		t.Errorf("long marks = %d, want 3", e.Long[0].Marks)
	}
}

func TestExamEmpty(t *testing.T) {
	var e Exam
	if !e.Empty() {
		t.Error("zero exam should be empty")
	}
	e.Long = append(e.Long, WrittenQuestion{Question: "q", Marks: 3})
	if e.Empty() {
		t.Error("exam with a question should not be empty")
	}
}

func TestExamAppend(t *testing.T) {
	var e Exam
	e.Append(QuestionMCQ, GeneratedQuestion{
		Question: "m", Options: []string{"a", "b", "c", "d"}, Correct: "b",
	})
	e.Append(QuestionShort, GeneratedQuestion{Question: "s"})
	e.Append(QuestionLong, GeneratedQuestion{Question: "l", Marks: 10})

	if len(e.MCQs) != 1 || e.MCQs[0].Marks != 1 {
		t.Errorf("MCQs = %+v, want one entry with 1 mark", e.MCQs)
	}
	if len(e.Short) != 1 || e.Short[0].Marks != 2 {
		t.Errorf("Short = %+v, want one entry with 2 marks", e.Short)
	}
	if len(e.Long) != 1 || e.Long[0].Marks != 10 {
		t.Errorf("Long = %+v, want one entry with 10 marks", e.Long)
	}
}

func TestScoreMCQ(t *testing.T) {
	exam := Exam{MCQs: []MCQ{
		{Question: "q1", Options: []string{"a", "b", "c", "d"}, Correct: "a", Marks: 1},
		{Question: "q2", Options: []string{"a", "b", "c", "d"}, Correct: "c", Marks: 2},
		{Question: "q3", Options: []string{"a", "b", "c", "d"}, Correct: "d", Marks: 1},
	}}

	tests := []struct {
		name      string
		answers   []string
		wantScore int
	}{
		{"all correct", []string{"a", "c", "d"}, 4},
		{"partially correct", []string{"a", "b", "d"}, 2},
		{"none correct", []string{"b", "a", "a"}, 0},
		{"short answer list", []string{"a"}, 1},
		{"no answers", nil, 0},
		{"extra answers ignored", []string{"a", "c", "d", "a", "a"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, total := exam.ScoreMCQ(tt.answers)
			if score != tt.wantScore {
				t.Errorf("score = %d, want %d", score, tt.wantScore)
			}
			if total != 4 {
				t.Errorf("total = %d, want 4", total)
			}
		})
	}
}

func TestUserRoleValid(t *testing.T) {
	if !UserRoleTeacher.Valid() || !UserRoleStudent.Valid() {
		t.Error("known roles should be valid")
	}
	if UserRole("Admin").Valid() {
		t.Error("unknown role should be invalid")
	}
}
