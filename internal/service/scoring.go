package service

import (
	"math"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/models"
)

const (
	minRating = 1
	maxRating = 4
	// ratings at or below this value require a remark and open a detail event
	lowRatingCeiling = 2
	// overall = mean category average scaled from [1,4] onto [25,100]
	overallScale = 25.0
)

// RatingBands holds inclusive lower bounds, evaluated top-down.
type RatingBands struct {
	Excellent    float64
	Satisfactory float64
	BelowAverage float64
}

// DefaultRatingBands returns the stock 91/75/70 thresholds.
func DefaultRatingBands() RatingBands {
	return RatingBands{Excellent: 91, Satisfactory: 75, BelowAverage: 70}
}

func (b RatingBands) withDefaults() RatingBands {
	def := DefaultRatingBands()
	if b.Excellent <= 0 {
		b.Excellent = def.Excellent
	}
	if b.Satisfactory <= 0 {
		b.Satisfactory = def.Satisfactory
	}
	if b.BelowAverage <= 0 {
		b.BelowAverage = def.BelowAverage
	}
	return b
}

// Band labels.
const (
	BandExcellent    = "Excellent"
	BandSatisfactory = "Satisfactory"
	BandBelowAverage = "Below Average"
	BandPoor         = "Poor"
)

var bandDescriptions = map[string]string{
	BandExcellent:    "Excellent - Exceeds the Customer Expectation",
	BandSatisfactory: "Satisfactory - Meets the Customer requirement",
	BandBelowAverage: "Below Average - Identify areas for improvement and initiate action to eliminate dissatisfaction",
	BandPoor:         "Poor - Identify areas for improvement and initiate action to eliminate dissatisfaction",
}

// Band returns the label for an overall rating.
func (b RatingBands) Band(overall float64) string {
	b = b.withDefaults()
	switch {
	case overall >= b.Excellent:
		return BandExcellent
	case overall >= b.Satisfactory:
		return BandSatisfactory
	case overall >= b.BelowAverage:
		return BandBelowAverage
	default:
		return BandPoor
	}
}

// Describe returns the long-form description stored with a submission.
func (b RatingBands) Describe(overall float64) string {
	return bandDescriptions[b.Band(overall)]
}

// CategoryRating is one scored answer.
type CategoryRating struct {
	Category models.Category
	Rating   int
}

// Score is the outcome of scoring one submission.
type Score struct {
	Complete    bool
	Categories  []dto.CategoryScore
	Overall     *float64
	Band        string
	Description string
}

// ScoreAnswers converts ratings into category averages and an overall rating. The
// result is complete only when each fixed category has exactly four ratings; ratings
// in other categories are ignored.
func ScoreAnswers(ratings []CategoryRating, bands RatingBands) Score {
	sums := make(map[models.Category]int, len(models.Categories))
	counts := make(map[models.Category]int, len(models.Categories))
	for _, r := range ratings {
		sums[r.Category] += r.Rating
		counts[r.Category]++
	}

	for _, cat := range models.Categories {
		if counts[cat] != models.QuestionsPerCategory {
			return Score{}
		}
	}

	categories := make([]dto.CategoryScore, 0, len(models.Categories))
	var total float64
	for _, cat := range models.Categories {
		avg := float64(sums[cat]) / float64(models.QuestionsPerCategory)
		total += avg
		categories = append(categories, dto.CategoryScore{Category: string(cat), Average: avg})
	}

	overall := round2(total / float64(len(models.Categories)) * overallScale)
	return Score{
		Complete:    true,
		Categories:  categories,
		Overall:     &overall,
		Band:        bands.Band(overall),
		Description: bands.Describe(overall),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
