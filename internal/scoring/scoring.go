package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/hireflow/hireflow/internal/models"
)

// NoteNotExecuted marks a coding question graded without any stored
// execution record.
const NoteNotExecuted = "Not executed"

// Submissions resolves the latest execution record for a coding question.
type Submissions interface {
	Latest(sectionID, questionID string) (*models.CodeSubmission, bool)
}

// Outcome is the graded summary for one session.
type Outcome struct {
	Score   int
	Status  models.ResultStatus
	Earned  int
	Total   int
	Answers []models.AnswerResult
}

// Grade scores every question of the test independently of navigation
// order. Coding questions are scored from their latest stored submission,
// never from the currently-edited code, and never re-executed here.
func Grade(test *models.Test, answers map[string]string, subs Submissions) Outcome {
	out := Outcome{}

	for _, section := range test.Sections {
		for _, q := range section.Questions {
			answer := answers[models.AnswerKey(section.ID, q.ID)]
			ar := models.AnswerResult{
				SectionID:      section.ID,
				QuestionID:     q.ID,
				Type:           q.Type,
				Answer:         answer,
				PointsPossible: q.Points,
			}

			switch q.Type {
			case models.QuestionMultipleChoice:
				if answer != "" && multipleChoiceCorrect(&q, answer) {
					ar.Correct = true
					ar.PointsAwarded = q.Points
				}

			case models.QuestionCoding:
				sub, ok := subs.Latest(section.ID, q.ID)
				if !ok {
					ar.Note = NoteNotExecuted
					ar.CodeResults = placeholderResults(&q)
				} else {
					ar.CodeResults = sub.Results
					ar.Answer = sub.Code
					if sub.AllPassed {
						ar.Correct = true
						ar.PointsAwarded = q.Points
					}
				}

			case models.QuestionWritten:
				// Never auto-scored; contributes 0 and goes to review.
				ar.ManualReview = true
			}

			out.Earned += ar.PointsAwarded
			out.Total += q.Points
			out.Answers = append(out.Answers, ar)
		}
	}

	out.Score = percentage(out.Earned, out.Total)
	out.Status = models.ResultFailed
	if out.Score >= test.PassingScore {
		out.Status = models.ResultPassed
	}

	return out
}

// multipleChoiceCorrect tries exact match, then case-insensitive match,
// then index equivalence (the selected option's position vs the position
// the correct answer denotes). First success wins; no partial credit.
func multipleChoiceCorrect(q *models.Question, answer string) bool {
	if answer == q.CorrectAnswer {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer)) {
		return true
	}

	selected := optionIndex(q.Options, answer)
	correct := correctIndex(q)
	return selected >= 0 && selected == correct
}

func optionIndex(options []string, value string) int {
	for i, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(value)) {
			return i
		}
	}
	return -1
}

// correctIndex resolves the position the correct answer denotes: the
// option it matches, a numeric index, or a single letter (A = 0).
func correctIndex(q *models.Question) int {
	if i := optionIndex(q.Options, q.CorrectAnswer); i >= 0 {
		return i
	}

	c := strings.TrimSpace(q.CorrectAnswer)
	if n, err := strconv.Atoi(c); err == nil && n >= 0 && n < len(q.Options) {
		return n
	}
	if len(c) == 1 {
		ch := c[0]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		if ch >= 'A' && ch <= 'Z' && int(ch-'A') < len(q.Options) {
			return int(ch - 'A')
		}
	}

	return -1
}

func placeholderResults(q *models.Question) []models.CaseResult {
	results := make([]models.CaseResult, 0, len(q.TestCases))
	for _, tc := range q.TestCases {
		results = append(results, models.CaseResult{
			Input:    tc.Input,
			Expected: tc.Expected,
			Actual:   NoteNotExecuted,
			Passed:   false,
		})
	}
	return results
}

func percentage(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(total)))
}

// UnexecutedCoding returns the texts of coding questions whose edited
// code differs from the template but have no stored execution record.
// Submission must be blocked while this is non-empty.
func UnexecutedCoding(test *models.Test, code map[string]string, subs Submissions) []string {
	var blocked []string

	for _, section := range test.Sections {
		for _, q := range section.Questions {
			if q.Type != models.QuestionCoding {
				continue
			}

			edited := strings.TrimSpace(code[models.AnswerKey(section.ID, q.ID)])
			if edited == "" || edited == strings.TrimSpace(q.CodeTemplate) {
				continue
			}
			if _, ok := subs.Latest(section.ID, q.ID); ok {
				continue
			}

			blocked = append(blocked, q.Text)
		}
	}

	return blocked
}
