package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mazehunt/server/internal/v1/logging"
	"github.com/mazehunt/server/internal/v1/metrics"
)

// ErrNoQuestions is returned when a fetched document yields no usable questions.
var ErrNoQuestions = errors.New("quiz: no usable questions in document")

const fetchTimeout = 5 * time.Second

// Service fetches question sets from the external provider. Fetches run off
// the room runtime's critical path; the runtime posts the result back to
// itself as a message. The circuit breaker short-circuits straight to the
// fallback pool while the provider is misbehaving.
type Service struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewService creates a quiz service for the given provider base URL.
func NewService(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		client:  &http.Client{Timeout: fetchTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "quiz-provider",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Fetch retrieves and normalizes the question set for a quiz id. On any
// failure the caller falls back to FallbackPool.
func (s *Service) Fetch(ctx context.Context, quizID string) ([]Question, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return s.fetch(ctx, quizID)
	})
	if err != nil {
		metrics.QuizFetchFailures.Inc()
		return nil, err
	}
	return result.([]Question), nil
}

func (s *Service) fetch(ctx context.Context, quizID string) ([]Question, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, quizID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quiz: provider returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}

	questions, err := Normalize(body)
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "Fetched quiz document",
		zap.String("quizId", quizID), zap.Int("questions", len(questions)))
	return questions, nil
}

// Normalize extracts and sanitizes questions from a raw provider document.
// The document nesting varies; the question list lives at quiz.info.questions
// or quiz.questions. Questions failing validation are dropped.
func Normalize(body []byte) ([]Question, error) {
	var doc struct {
		Quiz struct {
			Info struct {
				Questions []rawQuestion `json:"questions"`
			} `json:"info"`
			Questions []rawQuestion `json:"questions"`
		} `json:"quiz"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("quiz: parse document: %w", err)
	}

	raw := doc.Quiz.Info.Questions
	if len(raw) == 0 {
		raw = doc.Quiz.Questions
	}

	questions := make([]Question, 0, len(raw))
	for i, rq := range raw {
		q := rq.normalize(i)
		if q.Valid() {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

// rawQuestion mirrors the provider's question shape.
type rawQuestion struct {
	ID        string `json:"_id"`
	Structure struct {
		Query struct {
			Text  string `json:"text"`
			Media []struct {
				Type string `json:"type"`
				URL  string `json:"url"`
			} `json:"media"`
		} `json:"query"`
		Options []struct {
			Text string `json:"text"`
		} `json:"options"`
		Answer json.Number `json:"answer"`
	} `json:"structure"`
}

func (rq rawQuestion) normalize(index int) Question {
	q := Question{
		ID:   rq.ID,
		Text: Sanitize(rq.Structure.Query.Text),
	}
	if q.ID == "" {
		q.ID = fmt.Sprintf("q_%d", index)
	}
	for _, opt := range rq.Structure.Options {
		q.Options = append(q.Options, Sanitize(opt.Text))
	}
	for _, m := range rq.Structure.Query.Media {
		if m.Type == "image" && m.URL != "" {
			q.Images = append(q.Images, m.URL)
		}
	}
	// Non-integer answers (multi-select etc.) are out of scope; the
	// out-of-range sentinel fails validation and drops the question.
	if n, err := rq.Structure.Answer.Int64(); err == nil {
		q.CorrectIndex = int(n)
	} else {
		q.CorrectIndex = -1
	}
	return q
}
