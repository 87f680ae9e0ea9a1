package models

import "time"

type ResultStatus string

const (
	ResultPassed ResultStatus = "Passed"
	ResultFailed ResultStatus = "Failed"
)

// AnswerResult is the graded record for one question.
type AnswerResult struct {
	SectionID      string       `bson:"sectionId" json:"sectionId"`
	QuestionID     string       `bson:"questionId" json:"questionId"`
	Type           QuestionType `bson:"type" json:"type"`
	Answer         string       `bson:"answer" json:"answer"`
	Correct        bool         `bson:"correct" json:"correct"`
	PointsAwarded  int          `bson:"pointsAwarded" json:"pointsAwarded"`
	PointsPossible int          `bson:"pointsPossible" json:"pointsPossible"`
	ManualReview   bool         `bson:"manualReview,omitempty" json:"manualReview,omitempty"`
	CodeResults    []CaseResult `bson:"codeResults,omitempty" json:"codeResults,omitempty"`
	Note           string       `bson:"note,omitempty" json:"note,omitempty"`
}

// Result is created once at submission and read-only afterward.
type Result struct {
	InvitationID    string         `bson:"invitationId" json:"invitationId"`
	TestID          string         `bson:"testId" json:"testId"`
	Score           int            `bson:"score" json:"score"`
	Status          ResultStatus   `bson:"status" json:"status"`
	Duration        int            `bson:"duration" json:"duration"` // seconds
	Answers         []AnswerResult `bson:"answers" json:"answers"`
	TabSwitchCount  int            `bson:"tabSwitchCount" json:"tabSwitchCount"`
	Terminated      bool           `bson:"terminated" json:"terminated"`
	ResultsDeclared bool           `bson:"resultsDeclared" json:"resultsDeclared"`
	Preview         bool           `bson:"preview,omitempty" json:"preview,omitempty"`
	CreatedAt       time.Time      `bson:"createdAt" json:"createdAt"`
}

// ResultSummary is the taker-facing view of a result.
type ResultSummary struct {
	Score           int          `bson:"score" json:"score"`
	Status          ResultStatus `bson:"status" json:"status"`
	Duration        int          `bson:"duration" json:"duration"`
	ResultsDeclared bool         `bson:"resultsDeclared" json:"resultsDeclared"`
}
