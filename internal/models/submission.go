package models

import (
	"fmt"
	"time"
)

// CaseResult is the outcome of one test case from a code execution.
type CaseResult struct {
	Input    string `bson:"input" json:"input"`
	Expected string `bson:"expected" json:"expected"`
	Actual   string `bson:"actual" json:"actual"`
	Passed   bool   `bson:"passed" json:"passed"`
}

// CodeSubmission is one execution record for a coding question. Records
// accumulate per question across Run actions; scoring reads the latest.
type CodeSubmission struct {
	Code        string       `bson:"code" json:"code"`
	Language    string       `bson:"language" json:"language"`
	Timestamp   time.Time    `bson:"timestamp" json:"timestamp"`
	Results     []CaseResult `bson:"results" json:"results"`
	AllPassed   bool         `bson:"allPassed" json:"allPassed"`
	PassedCount int          `bson:"passedCount" json:"passedCount"`
	TotalCount  int          `bson:"totalCount" json:"totalCount"`
}

// AnswerKey addresses an answer by section and question, never by index,
// so a shuffled question order cannot corrupt the store.
func AnswerKey(sectionID, questionID string) string {
	return sectionID + "-" + questionID
}

// SubmissionKey is the canonical identifier for a question's code
// submission history within one session.
func SubmissionKey(sessionID, sectionID, questionID string) string {
	return fmt.Sprintf("%s:%s:%s", sessionID, sectionID, questionID)
}
