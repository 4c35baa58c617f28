package popularity

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zentra/emotebank/internal/models"
)

func always(int) int { return 0 }
func never(n int) int { return n - 1 }

func TestBucket(t *testing.T) {
	tests := []struct {
		score  int8
		bucket int
	}{
		{-128, -1},
		{-97, -1},
		{-96, 0},
		{-33, 1},
		{-1, 2},
		{0, 3},
		{31, 3},
		{32, 4},
		{126, 6},
		{127, 6},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.bucket, Bucket(tt.score), "score=%d", tt.score)
	}
}

func TestOdds_DoublePerBucket(t *testing.T) {
	assert.Equal(t, 1, Odds(-128))
	assert.Equal(t, 2, Odds(-96))

	for score := -96; score+32 <= 127; score += 32 {
		assert.Equal(t, 2*Odds(int8(score)), Odds(int8(score+32)), "score=%d", score)
	}
	assert.Equal(t, 128, Odds(96))
}

func TestStep(t *testing.T) {
	next, moved := Step(-128, never)
	assert.True(t, moved, "lowest band ignores the draw")
	assert.Equal(t, int8(-127), next)

	next, moved = Step(0, always)
	assert.True(t, moved)
	assert.Equal(t, int8(1), next)

	next, moved = Step(0, never)
	assert.False(t, moved)
	assert.Equal(t, int8(0), next)

	next, moved = Step(models.MaxScore, always)
	assert.False(t, moved)
	assert.Equal(t, int8(models.MaxScore), next)
}

func TestStep_DrawsAgainstOdds(t *testing.T) {
	var asked []int
	record := func(n int) int {
		asked = append(asked, n)
		return 0
	}

	Step(-96, record)
	Step(0, record)
	Step(100, record)
	Step(-100, record)

	assert.Equal(t, []int{2, 16, 128}, asked)
}

func TestStep_NeverLeavesRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	score := int8(models.MinScore)
	for i := 0; i < 200000; i++ {
		next, moved := Step(score, rng.IntN)
		if moved {
			assert.Equal(t, score+1, next)
		} else {
			assert.Equal(t, score, next)
		}
		score = next
	}
	assert.LessOrEqual(t, int(score), models.MaxScore)

	for i := 0; i < 300; i++ {
		score, _ = models.DecayedScore(score)
	}
	assert.GreaterOrEqual(t, int(score), models.MinScore)
	assert.Equal(t, int8(models.ColdScore), score)
}
