package service

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/noah-isme/dept-csat-engine/internal/models"
)

func ratingsFromSlice(values []int) []CategoryRating {
	out := make([]CategoryRating, 0, len(values))
	for i, v := range values {
		out = append(out, CategoryRating{Category: models.Categories[i/models.QuestionsPerCategory], Rating: v})
	}
	return out
}

// Property: overall == (sum of category averages / 5) * 25 and lies in [25, 100].
func TestOverallRatingFormula(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	total := len(models.Categories) * models.QuestionsPerCategory

	properties.Property("overall follows the category average formula", prop.ForAll(
		func(values []int) bool {
			score := ScoreAnswers(ratingsFromSlice(values), DefaultRatingBands())
			if !score.Complete || score.Overall == nil {
				return false
			}
			var sumAverages float64
			for _, c := range score.Categories {
				sumAverages += c.Average
			}
			return *score.Overall == round2(sumAverages/5*25)
		},
		gen.SliceOfN(total, gen.IntRange(minRating, maxRating)),
	))

	properties.Property("overall stays within bounds", prop.ForAll(
		func(values []int) bool {
			overall := *ScoreAnswers(ratingsFromSlice(values), DefaultRatingBands()).Overall
			return overall >= 25 && overall <= 100
		},
		gen.SliceOfN(total, gen.IntRange(minRating, maxRating)),
	))

	properties.Property("dropping any rating makes the score incomplete", prop.ForAll(
		func(values []int, drop int) bool {
			ratings := ratingsFromSlice(values)
			ratings = append(ratings[:drop], ratings[drop+1:]...)
			return !ScoreAnswers(ratings, DefaultRatingBands()).Complete
		},
		gen.SliceOfN(total, gen.IntRange(minRating, maxRating)),
		gen.IntRange(0, total-1),
	))

	properties.TestingRun(t)
}
