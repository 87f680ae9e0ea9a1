package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunResultCanonicalFields(t *testing.T) {
	msg := &StreamMessage{
		ID: "1693297200000-0",
		Fields: map[string]string{
			"sessionId":   "sess-1",
			"sectionId":   "sec-2",
			"questionId":  "q7",
			"code":        "def solve():\n    return 42",
			"language":    "python",
			"results":     `[{"input":"1 2","expected":"3","actual":"3","passed":true}]`,
			"allPassed":   "true",
			"passedCount": "1",
			"totalCount":  "1",
			"timestamp":   "1693297200000",
		},
	}

	r, err := ParseRunResult(msg)
	require.NoError(t, err)

	assert.Equal(t, "sess-1", r.SessionID)
	assert.Equal(t, "sec-2", r.SectionID)
	assert.Equal(t, "q7", r.QuestionID)
	assert.Equal(t, "def solve():\n    return 42", r.Submission.Code)
	assert.Equal(t, "python", r.Submission.Language)
	assert.True(t, r.Submission.AllPassed)
	assert.Equal(t, 1, r.Submission.PassedCount)
	assert.Equal(t, 1, r.Submission.TotalCount)
	require.Len(t, r.Submission.Results, 1)
	assert.True(t, r.Submission.Results[0].Passed)
	assert.Equal(t, time.UnixMilli(1693297200000), r.Submission.Timestamp)
}

func TestParseRunResultLegacyTripleKey(t *testing.T) {
	msg := &StreamMessage{
		ID: "1-0",
		Fields: map[string]string{
			"key":  "sess-1:sec-2:q7",
			"code": "code",
		},
	}

	r, err := ParseRunResult(msg)
	require.NoError(t, err)

	assert.Equal(t, "sess-1", r.SessionID)
	assert.Equal(t, "sec-2", r.SectionID)
	assert.Equal(t, "q7", r.QuestionID)
}

func TestParseRunResultLegacyDashKey(t *testing.T) {
	msg := &StreamMessage{
		ID: "1-0",
		Fields: map[string]string{
			"sessionId": "sess-1",
			"key":       "sec-2-q7",
		},
	}

	r, err := ParseRunResult(msg)
	require.NoError(t, err)

	assert.Equal(t, "sess-1", r.SessionID)
	assert.Equal(t, "sec-2", r.SectionID)
	assert.Equal(t, "q7", r.QuestionID)
}

func TestParseRunResultBareQuestionID(t *testing.T) {
	msg := &StreamMessage{
		ID: "1-0",
		Fields: map[string]string{
			"sessionId": "sess-1",
			"key":       "q7",
		},
	}

	r, err := ParseRunResult(msg)
	require.NoError(t, err)

	assert.Equal(t, "sess-1", r.SessionID)
	assert.Empty(t, r.SectionID)
	assert.Equal(t, "q7", r.QuestionID)
}

func TestParseRunResultExplicitFieldsWinOverKey(t *testing.T) {
	msg := &StreamMessage{
		ID: "1-0",
		Fields: map[string]string{
			"sessionId":  "sess-explicit",
			"key":        "sess-legacy:sec-legacy:q-legacy",
			"questionId": "",
		},
	}

	r, err := ParseRunResult(msg)
	require.NoError(t, err)

	assert.Equal(t, "sess-explicit", r.SessionID)
	assert.Equal(t, "sec-legacy", r.SectionID)
	assert.Equal(t, "q-legacy", r.QuestionID)
}

func TestParseRunResultMissingSessionID(t *testing.T) {
	msg := &StreamMessage{
		ID:     "1-0",
		Fields: map[string]string{"questionId": "q7"},
	}

	_, err := ParseRunResult(msg)
	assert.Error(t, err)
}

func TestParseRunResultMissingQuestionAddress(t *testing.T) {
	msg := &StreamMessage{
		ID:     "1-0",
		Fields: map[string]string{"sessionId": "sess-1"},
	}

	_, err := ParseRunResult(msg)
	assert.Error(t, err)
}

func TestParseRunResultInvalidResultsPayload(t *testing.T) {
	msg := &StreamMessage{
		ID: "1-0",
		Fields: map[string]string{
			"sessionId":  "sess-1",
			"questionId": "q7",
			"results":    "{not json",
		},
	}

	_, err := ParseRunResult(msg)
	assert.Error(t, err)
}

func TestParseRunResultDefaultsTimestamp(t *testing.T) {
	msg := &StreamMessage{
		ID: "1-0",
		Fields: map[string]string{
			"sessionId":  "sess-1",
			"questionId": "q7",
		},
	}

	r, err := ParseRunResult(msg)
	require.NoError(t, err)
	assert.False(t, r.Submission.Timestamp.IsZero())
}
