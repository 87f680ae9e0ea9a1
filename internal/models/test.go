package models

import "time"

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "Multiple Choice"
	QuestionCoding         QuestionType = "Coding"
	QuestionWritten        QuestionType = "Written Answer"
)

// TestCase is one input/expected pair for a coding question.
type TestCase struct {
	Input    string `bson:"input" json:"input"`
	Expected string `bson:"expected" json:"expected"`
}

type Question struct {
	ID            string       `bson:"id" json:"id"`
	Text          string       `bson:"text" json:"text"`
	Type          QuestionType `bson:"type" json:"type"`
	Options       []string     `bson:"options,omitempty" json:"options,omitempty"`
	CorrectAnswer string       `bson:"correctAnswer,omitempty" json:"correctAnswer,omitempty"`
	Points        int          `bson:"points" json:"points"`
	CodeLanguage  string       `bson:"codeLanguage,omitempty" json:"codeLanguage,omitempty"`
	CodeTemplate  string       `bson:"codeTemplate,omitempty" json:"codeTemplate,omitempty"`
	TestCases     []TestCase   `bson:"testCases,omitempty" json:"testCases,omitempty"`
	MaxWords      int          `bson:"maxWords,omitempty" json:"maxWords,omitempty"`
}

type Section struct {
	ID           string       `bson:"id" json:"id"`
	Title        string       `bson:"title" json:"title"`
	Duration     int          `bson:"duration" json:"duration"`
	QuestionType QuestionType `bson:"questionType" json:"questionType"`
	Questions    []Question   `bson:"questions" json:"questions"`
}

type TestSettings struct {
	ShuffleQuestions    bool `bson:"shuffleQuestions" json:"shuffleQuestions"`
	PreventTabSwitching bool `bson:"preventTabSwitching" json:"preventTabSwitching"`
	AllowCalculator     bool `bson:"allowCalculator" json:"allowCalculator"`
	AllowCodeEditor     bool `bson:"allowCodeEditor" json:"allowCodeEditor"`
	AutoSubmit          bool `bson:"autoSubmit" json:"autoSubmit"`
}

// Test is immutable during a session except for the one-time question
// shuffle applied at session creation.
type Test struct {
	ID           string       `bson:"_id,omitempty" json:"_id"`
	Name         string       `bson:"name" json:"name"`
	Duration     int          `bson:"duration" json:"duration"` // minutes
	PassingScore int          `bson:"passingScore" json:"passingScore"`
	Instructions string       `bson:"instructions" json:"instructions"`
	Settings     TestSettings `bson:"settings" json:"settings"`
	Sections     []Section    `bson:"sections" json:"sections"`
}

func (t *Test) TotalPoints() int {
	total := 0
	for _, s := range t.Sections {
		for _, q := range s.Questions {
			total += q.Points
		}
	}
	return total
}

func (t *Test) Deadline(start time.Time) time.Time {
	return start.Add(time.Duration(t.Duration) * time.Minute)
}
