package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Phurinho/outcome-career-align/internal/models"
)

// Scorer is the scoring collaborator: it proposes (unit, confidence) pairs for a CLO.
type Scorer interface {
	Score(ctx context.Context, clo models.CLO, units []models.Unit) ([]models.ScoreCandidate, error)
}

var scorerStopwords = map[string]struct{}{
	"and": {}, "the": {}, "to": {}, "of": {}, "with": {}, "for": {}, "using": {},
}

// LexicalScorer rates units by how many title keywords fuzzily appear in the
// CLO description. Candidates below MinConfidence are dropped.
type LexicalScorer struct {
	MinConfidence float64
}

// NewLexicalScorer builds the default scorer.
func NewLexicalScorer(minConfidence int) *LexicalScorer {
	return &LexicalScorer{MinConfidence: float64(minConfidence)}
}

// Score returns candidates ordered by confidence desc, then unit code.
func (s *LexicalScorer) Score(ctx context.Context, clo models.CLO, units []models.Unit) ([]models.ScoreCandidate, error) {
	words := keywords(clo.Description)
	candidates := make([]models.ScoreCandidate, 0)
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		confidence := keywordCoverage(words, keywords(unit.Title))
		if confidence <= 0 || confidence < s.MinConfidence {
			continue
		}
		candidates = append(candidates, models.ScoreCandidate{UnitCode: unit.UnitCode, Confidence: confidence})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].UnitCode < candidates[j].UnitCode
	})
	return candidates, nil
}

// keywordCoverage is the rounded share of target words matched by any source word.
func keywordCoverage(source, target []string) float64 {
	if len(target) == 0 || len(source) == 0 {
		return 0
	}
	matched := 0
	for _, want := range target {
		for _, have := range source {
			if similar(have, want) {
				matched++
				break
			}
		}
	}
	return math.Round(100 * float64(matched) / float64(len(target)))
}

// similar accepts the shorter word appearing in order inside the longer one
// with at most half of the longer word edited.
func similar(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	rank := fuzzy.RankMatchNormalizedFold(short, long)
	return rank >= 0 && rank <= len(long)/2
}

func keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < 3 {
			continue
		}
		if _, stop := scorerStopwords[field]; stop {
			continue
		}
		words = append(words, field)
	}
	return words
}
