// Package consensus сводит набор вердиктов в итог заявки.
// Функции чистые: одинаковый набор вердиктов дает одинаковый итог
// независимо от порядка.
package consensus

import (
	"math"

	"verdict_backend/internal/models"
)

// Compute считает итог для варианта заявки.
// ComputedAt не заполняется, его ставит вызывающий код.
func Compute(variant models.RequestVariant, verdicts []models.Verdict) models.ConsensusOutcome {
	switch variant {
	case models.VariantComparison:
		return comparison(verdicts)
	case models.VariantSplitTest:
		return splitTest(verdicts)
	default:
		return standard(verdicts)
	}
}

func standard(verdicts []models.Verdict) models.ConsensusOutcome {
	out := models.ConsensusOutcome{
		Variant:      models.VariantStandard,
		VerdictCount: len(verdicts),
	}

	sum, n := 0, 0
	for _, v := range verdicts {
		if v.Rating == nil {
			continue
		}
		sum += *v.Rating
		n++
	}
	if n > 0 {
		avg := float64(sum) / float64(n)
		out.AvgRating = &avg
	}
	return out
}

// comparison: победитель определяется только голосами A и B.
// Явные голоса "tie" попадают в подсчет, но не решают исход.
func comparison(verdicts []models.Verdict) models.ConsensusOutcome {
	tally := models.VoteTally{}
	for _, v := range verdicts {
		if v.PreferredOption == nil {
			continue
		}
		switch *v.PreferredOption {
		case models.ChoiceA:
			tally.A++
		case models.ChoiceB:
			tally.B++
		case models.ChoiceTie:
			tally.Tie++
		}
	}

	return models.ConsensusOutcome{
		Variant:      models.VariantComparison,
		VerdictCount: len(verdicts),
		WinnerOption: winner(tally.A, tally.B),
		Tally:        &tally,
	}
}

func splitTest(verdicts []models.Verdict) models.ConsensusOutcome {
	tally := models.VoteTally{}
	for _, v := range verdicts {
		if v.ChosenPhoto == nil {
			continue
		}
		switch *v.ChosenPhoto {
		case models.ChoiceA:
			tally.A++
		case models.ChoiceB:
			tally.B++
		}
	}

	total := tally.A + tally.B
	strength := 0.0
	if total > 0 {
		winning := tally.A
		if tally.B > winning {
			winning = tally.B
		}
		strength = round4(float64(winning) / float64(total))
	}

	return models.ConsensusOutcome{
		Variant:           models.VariantSplitTest,
		VerdictCount:      len(verdicts),
		WinningPhoto:      winner(tally.A, tally.B),
		ConsensusStrength: &strength,
		Tally:             &tally,
	}
}

// winner симметричен по A и B
func winner(a, b int) models.Choice {
	switch {
	case a > b:
		return models.ChoiceA
	case b > a:
		return models.ChoiceB
	default:
		return models.ChoiceTie
	}
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
