package model

import "context"

// UserRole represents a user's access level.
//
// The values are capitalized to stay wire-compatible with users.json files
// written by earlier deployments.
type UserRole string

const (
	// UserRoleTeacher can upload materials and publish exams.
	UserRoleTeacher UserRole = "Teacher"
	// UserRoleStudent can open an exam link and answer it.
	UserRoleStudent UserRole = "Student"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	return r == UserRoleTeacher || r == UserRoleStudent
}

// User represents a registered user. The JSON tags match the flat
// users.json format: the stored "password" field holds the hash, not the
// plaintext.
type User struct {
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	PasswordHash string   `json:"password"`
	Role         UserRole `json:"role"`
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType identifies one of the three exam sections.
type QuestionType string

const (
	QuestionMCQ   QuestionType = "mcq"
	QuestionShort QuestionType = "short"
	QuestionLong  QuestionType = "long"
)

// Valid reports whether the question type is known.
func (t QuestionType) Valid() bool {
	return t == QuestionMCQ || t == QuestionShort || t == QuestionLong
}

// MCQ is a multiple-choice question with exactly four options.
type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  string   `json:"correct"`
	Marks    int      `json:"marks"`
}

// WrittenQuestion is a short- or long-answer question graded by the teacher.
type WrittenQuestion struct {
	Question string `json:"question"`
	Marks    int    `json:"marks"`
}

// Exam is a generated exam paper. It is mutable in place during editing and
// has no identity beyond list position; the published form is the encoded
// token, not a database row.
type Exam struct {
	MCQs  []MCQ             `json:"mcqs"`
	Short []WrittenQuestion `json:"short"`
	Long  []WrittenQuestion `json:"long"`
}

// GenerationSpec holds the requested number of questions per section.
type GenerationSpec struct {
	NumMCQ   int
	NumShort int
	NumLong  int
}

// GeneratedQuestion is the model's reply when a single question is added to
// an existing exam. Options and Correct are only set for MCQs.
type GeneratedQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Correct  string   `json:"correct,omitempty"`
	Marks    int      `json:"marks"`
}

// Empty reports whether the exam has no questions in any section.
func (e *Exam) Empty() bool {
	return len(e.MCQs) == 0 && len(e.Short) == 0 && len(e.Long) == 0
}

// Normalize repairs model output so the exam is always renderable: every
// MCQ gets exactly four options, a correct answer that is one of them, and
// at least one mark; written questions get at least one mark.
func (e *Exam) Normalize() {
	for i := range e.MCQs {
		e.MCQs[i].Normalize()
	}
	for i := range e.Short {
		if e.Short[i].Marks <= 0 {
			e.Short[i].Marks = 2
		}
	}
	for i := range e.Long {
		if e.Long[i].Marks <= 0 {
			e.Long[i].Marks = 3
		}
	}
}

// Normalize pads the option list to four entries and resets Correct to the
// first option when it does not match any of them.
func (q *MCQ) Normalize() {
	for len(q.Options) < 4 {
		q.Options = append(q.Options, "")
	}
	q.Options = q.Options[:4]
	found := false
	for _, opt := range q.Options {
		if opt == q.Correct {
			found = true
			break
		}
	}
	if !found {
		q.Correct = q.Options[0]
	}
	if q.Marks <= 0 {
		q.Marks = 1
	}
}

// Append adds a generated question to the section named by t.
func (e *Exam) Append(t QuestionType, q GeneratedQuestion) {
	switch t {
	case QuestionMCQ:
		mcq := MCQ{Question: q.Question, Options: q.Options, Correct: q.Correct, Marks: q.Marks}
		mcq.Normalize()
		e.MCQs = append(e.MCQs, mcq)
	case QuestionShort:
		if q.Marks <= 0 {
			q.Marks = 2
		}
		e.Short = append(e.Short, WrittenQuestion{Question: q.Question, Marks: q.Marks})
	case QuestionLong:
		if q.Marks <= 0 {
			q.Marks = 3
		}
		e.Long = append(e.Long, WrittenQuestion{Question: q.Question, Marks: q.Marks})
	}
}

// ScoreMCQ grades the multiple-choice section. answers[i] is the selected
// option text for MCQs[i]; missing answers score zero. The total is the sum
// of marks across all MCQs regardless of the answers given.
func (e *Exam) ScoreMCQ(answers []string) (score, total int) {
	for i, q := range e.MCQs {
		total += q.Marks
		if i < len(answers) && answers[i] == q.Correct {
			score += q.Marks
		}
	}
	return score, total
}
