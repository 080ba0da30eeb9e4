// Package quiz fetches and normalizes question sets from the external
// question provider, with a bundled local pool as the fallback.
package quiz

import (
	"math/rand"

	"k8s.io/utils/set"
)

// Question is the normalized question shape used everywhere in the server.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Images       []string `json:"images,omitempty"`
}

// Valid reports whether a normalized question is usable: non-empty text,
// at least two options, and a correct index inside the option range.
func (q Question) Valid() bool {
	if q.Text == "" || len(q.Options) < 2 {
		return false
	}
	return q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options)
}

// SelectForPlayer picks n questions the player has not attempted yet. When
// the pool holds fewer than n unattempted questions it fills with repeats
// drawn uniformly from the pool; an empty pool is padded from the fallback.
func SelectForPlayer(pool []Question, attempted set.Set[string], n int, rng *rand.Rand) []Question {
	if len(pool) == 0 {
		pool = FallbackPool()
	}

	fresh := make([]Question, 0, len(pool))
	for _, q := range pool {
		if !attempted.Has(q.ID) {
			fresh = append(fresh, q)
		}
	}
	rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })

	out := make([]Question, 0, n)
	for _, q := range fresh {
		if len(out) == n {
			return out
		}
		out = append(out, q)
	}
	for len(out) < n {
		out = append(out, pool[rng.Intn(len(pool))])
	}
	return out
}

// FallbackPool returns the bundled local question set, used when the
// external fetch fails or a room has no quiz configured.
func FallbackPool() []Question {
	return []Question{
		{ID: "local_1", Text: "What is 7 x 8?", Options: []string{"54", "56", "63", "48"}, CorrectIndex: 1},
		{ID: "local_2", Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Jupiter", "Mars", "Saturn"}, CorrectIndex: 2},
		{ID: "local_3", Text: "What is the capital of France?", Options: []string{"Lyon", "Marseille", "Nice", "Paris"}, CorrectIndex: 3},
		{ID: "local_4", Text: "How many sides does a hexagon have?", Options: []string{"5", "6", "7", "8"}, CorrectIndex: 1},
		{ID: "local_5", Text: "What gas do plants absorb from the atmosphere?", Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Helium"}, CorrectIndex: 2},
		{ID: "local_6", Text: "What is 15% of 200?", Options: []string{"20", "25", "30", "35"}, CorrectIndex: 2},
		{ID: "local_7", Text: "Which ocean is the largest?", Options: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectIndex: 3},
		{ID: "local_8", Text: "What is the square root of 144?", Options: []string{"10", "11", "12", "14"}, CorrectIndex: 2},
		{ID: "local_9", Text: "Who wrote Romeo and Juliet?", Options: []string{"Dickens", "Shakespeare", "Austen", "Twain"}, CorrectIndex: 1},
		{ID: "local_10", Text: "What is the chemical symbol for gold?", Options: []string{"Go", "Gd", "Au", "Ag"}, CorrectIndex: 2},
		{ID: "local_11", Text: "How many continents are there?", Options: []string{"5", "6", "7", "8"}, CorrectIndex: 2},
		{ID: "local_12", Text: "What is 9 squared?", Options: []string{"72", "81", "90", "99"}, CorrectIndex: 1},
	}
}
