package consensus

import (
	"math/rand"
	"testing"

	"verdict_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rated(ratings ...int) []models.Verdict {
	out := make([]models.Verdict, 0, len(ratings))
	for _, r := range ratings {
		r := r
		out = append(out, models.Verdict{Variant: models.VariantStandard, Rating: &r})
	}
	return out
}

func preferred(choices ...models.Choice) []models.Verdict {
	out := make([]models.Verdict, 0, len(choices))
	for _, c := range choices {
		c := c
		out = append(out, models.Verdict{Variant: models.VariantComparison, PreferredOption: &c})
	}
	return out
}

func chosen(choices ...models.Choice) []models.Verdict {
	out := make([]models.Verdict, 0, len(choices))
	for _, c := range choices {
		c := c
		out = append(out, models.Verdict{Variant: models.VariantSplitTest, ChosenPhoto: &c})
	}
	return out
}

func TestStandard_AverageRating(t *testing.T) {
	out := Compute(models.VariantStandard, rated(6, 8, 10))
	require.NotNil(t, out.AvgRating)
	assert.Equal(t, 8.0, *out.AvgRating)
	assert.Equal(t, 3, out.VerdictCount)

	out = Compute(models.VariantStandard, rated(7, 8, 8))
	require.NotNil(t, out.AvgRating)
	assert.InDelta(t, 23.0/3, *out.AvgRating, 1e-12)
}

func TestStandard_NoRatingsIsNull(t *testing.T) {
	out := Compute(models.VariantStandard, []models.Verdict{{Variant: models.VariantStandard}})
	assert.Nil(t, out.AvgRating)

	out = Compute(models.VariantStandard, nil)
	assert.Nil(t, out.AvgRating)
	assert.Equal(t, 0, out.VerdictCount)
}

func TestComparison_Winner(t *testing.T) {
	cases := []struct {
		name   string
		votes  []models.Choice
		winner models.Choice
	}{
		{"even split is a tie", []models.Choice{models.ChoiceA, models.ChoiceB}, models.ChoiceTie},
		{"majority A", []models.Choice{models.ChoiceA, models.ChoiceA, models.ChoiceB}, models.ChoiceA},
		{"majority B", []models.Choice{models.ChoiceB, models.ChoiceA, models.ChoiceB}, models.ChoiceB},
		{"tie votes do not decide", []models.Choice{models.ChoiceTie, models.ChoiceTie, models.ChoiceA}, models.ChoiceA},
		{"only tie votes", []models.Choice{models.ChoiceTie}, models.ChoiceTie},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Compute(models.VariantComparison, preferred(tc.votes...))
			assert.Equal(t, tc.winner, out.WinnerOption)
		})
	}
}

func TestComparison_Symmetry(t *testing.T) {
	swap := map[models.Choice]models.Choice{models.ChoiceA: models.ChoiceB, models.ChoiceB: models.ChoiceA, models.ChoiceTie: models.ChoiceTie}
	votes := []models.Choice{models.ChoiceA, models.ChoiceA, models.ChoiceB, models.ChoiceTie}

	swapped := make([]models.Choice, len(votes))
	for i, v := range votes {
		swapped[i] = swap[v]
	}

	a := Compute(models.VariantComparison, preferred(votes...))
	b := Compute(models.VariantComparison, preferred(swapped...))
	assert.Equal(t, swap[a.WinnerOption], b.WinnerOption)
	assert.Equal(t, a.Tally.A, b.Tally.B)
	assert.Equal(t, a.Tally.Tie, b.Tally.Tie)
}

func TestSplitTest_WinnerAndStrength(t *testing.T) {
	out := Compute(models.VariantSplitTest, chosen(models.ChoiceA, models.ChoiceA, models.ChoiceB, models.ChoiceA, models.ChoiceA))
	assert.Equal(t, models.ChoiceA, out.WinningPhoto)
	require.NotNil(t, out.ConsensusStrength)
	assert.InDelta(t, 0.8, *out.ConsensusStrength, 1e-9)

	out = Compute(models.VariantSplitTest, chosen(models.ChoiceA, models.ChoiceB))
	assert.Equal(t, models.ChoiceTie, out.WinningPhoto)
	assert.InDelta(t, 0.5, *out.ConsensusStrength, 1e-9)

	out = Compute(models.VariantSplitTest, nil)
	assert.Equal(t, models.ChoiceTie, out.WinningPhoto)
	assert.Equal(t, 0.0, *out.ConsensusStrength)
}

func TestCompute_OrderIndependent(t *testing.T) {
	verdicts := chosen(models.ChoiceA, models.ChoiceB, models.ChoiceB, models.ChoiceA, models.ChoiceB, models.ChoiceB, models.ChoiceA)
	want := Compute(models.VariantSplitTest, verdicts)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Verdict(nil), verdicts...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Compute(models.VariantSplitTest, shuffled))
	}
}
