package exam

import (
	"hash/fnv"
	"math/rand"

	"github.com/hireflow/hireflow/internal/models"
)

// SeedFromSessionID derives the shuffle seed from the session id, fixed
// at creation, so refetching the test mid-session reproduces the same
// question order.
func SeedFromSessionID(sessionID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	return h.Sum64()
}

// ShuffleQuestions returns a copy of the test with each section's
// question order permuted deterministically by the seed. Answers stay
// keyed by section and question id, so the permutation cannot corrupt
// the answer store.
func ShuffleQuestions(test *models.Test, seed uint64) *models.Test {
	shuffled := *test
	shuffled.Sections = make([]models.Section, len(test.Sections))

	rng := rand.New(rand.NewSource(int64(seed)))
	for i, section := range test.Sections {
		shuffled.Sections[i] = section
		questions := make([]models.Question, len(section.Questions))
		copy(questions, section.Questions)
		rng.Shuffle(len(questions), func(a, b int) {
			questions[a], questions[b] = questions[b], questions[a]
		})
		shuffled.Sections[i].Questions = questions
	}

	return &shuffled
}
