package algorithms

import (
	"testing"

	"verdict_backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestScoreExpert(t *testing.T) {
	strong := models.Expert{JudgeID: "a", CredentialLevel: 3, Categories: []string{"Fashion"}, Rating: 4.8, CompletedVerdicts: 150}
	score, reasons := ScoreExpert(strong, "fashion")
	assert.Equal(t, 100.0, score)
	assert.Contains(t, reasons, "Same category")

	weak := models.Expert{JudgeID: "b", CredentialLevel: 1, Categories: []string{"career"}, Rating: 3.0}
	score, _ = ScoreExpert(weak, "fashion")
	assert.Equal(t, 10.0, score)
}

func TestRankExperts_DeterministicAndLimited(t *testing.T) {
	experts := []models.Expert{
		{JudgeID: "c", CredentialLevel: 2, Categories: []string{"style"}},
		{JudgeID: "a", CredentialLevel: 2, Categories: []string{"style"}},
		{JudgeID: "b", CredentialLevel: 3, Categories: []string{"style"}, Rating: 4.9},
	}

	ranked := RankExperts(experts, "style", 2)
	assert.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].Expert.JudgeID)
	assert.Equal(t, "a", ranked[1].Expert.JudgeID)
}
