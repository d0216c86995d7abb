package algorithms

import (
	"sort"
	"strings"

	"verdict_backend/internal/models"
)

// ExpertMatch - эксперт с оценкой соответствия заявке (0-100)
type ExpertMatch struct {
	Expert  models.Expert
	Score   float64
	Reasons []string
}

// ScoreExpert оценивает, насколько эксперт подходит заявке категории category
func ScoreExpert(expert models.Expert, category string) (float64, []string) {
	score := 0.0
	reasons := []string{}

	// Category match (40 points)
	if category == "" {
		score += 20
	} else if hasCategory(expert.Categories, category) {
		score += 40
		reasons = append(reasons, "Same category")
	}

	// Credential level (30 points, 10 per level)
	if expert.CredentialLevel > 0 {
		score += float64(min(expert.CredentialLevel, 3)) * 10
		reasons = append(reasons, "Credentialed")
	}

	// Rating (up to 20 points)
	if expert.Rating >= 4.5 {
		score += 20
		reasons = append(reasons, "High rating")
	} else if expert.Rating >= 4.0 {
		score += 10
	}

	// Experience (up to 10 points)
	switch {
	case expert.CompletedVerdicts >= 100:
		score += 10
		reasons = append(reasons, "Experienced")
	case expert.CompletedVerdicts >= 20:
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score, reasons
}

// RankExperts сортирует экспертов по убыванию оценки и возвращает не больше limit.
// При равной оценке порядок по judge_id, чтобы пул был детерминирован.
func RankExperts(experts []models.Expert, category string, limit int) []ExpertMatch {
	matches := make([]ExpertMatch, 0, len(experts))
	for _, e := range experts {
		score, reasons := ScoreExpert(e, category)
		matches = append(matches, ExpertMatch{Expert: e, Score: score, Reasons: reasons})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Expert.JudgeID < matches[j].Expert.JudgeID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func hasCategory(categories []string, category string) bool {
	for _, c := range categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}
