package llm

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"

	NSFWPrompt = "You are an image moderation system. Rate how sexually explicit or otherwise not safe for work the image is. " +
		"Respond with a single number between 0 and 1, where 0 is completely safe and 1 is certainly explicit. Do not add any other text."
)

var (
	ErrNoScore = errors.New("no score in model response")

	scoreRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(%)?`)
)

type GenerationParameters struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
}

// DefaultScoringParameters keep answers short and deterministic.
func DefaultScoringParameters() GenerationParameters {
	return GenerationParameters{
		Temperature:     0,
		TopP:            1,
		MaxOutputTokens: 16,
	}
}

// ParseScore extracts the first number of a model answer as a score in [0,1].
// A number followed by "%" and a bare number in (10,100] are percentages.
// Anything else above 1 clamps to 1.
func ParseScore(answer string) (float64, error) {
	m := scoreRe.FindStringSubmatch(answer)
	if m == nil {
		return 0, errors.Wrapf(ErrNoScore, "%q", answer)
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, errors.Wrapf(ErrNoScore, "%q: %v", answer, err)
	}
	percent := m[2] != "" || (score > 10 && score <= 100)
	if percent {
		score /= 100
	}
	return min(score, 1), nil
}
