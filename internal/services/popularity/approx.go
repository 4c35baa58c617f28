package popularity

import "github.com/zentra/emotebank/internal/models"

// The score is an approximate counter: each 32-point band of the signed byte
// halves the chance that one more usage moves it. Stored values therefore
// track roughly log2 of real usage while never leaving [-128, 127].
//
//	score        bucket  chance
//	-128 .. -97    -1    always
//	 -96 .. -65     0    1/2
//	 -64 .. -33     1    1/4
//	 -32 ..  -1     2    1/8
//	   0 ..  31     3    1/16
//	  32 ..  63     4    1/32
//	  64 ..  95     5    1/64
//	  96 .. 126     6    1/128

// Bucket returns (score >> 5) + 3. Go shifts signed integers arithmetically,
// so the most negative band yields -1.
func Bucket(score int8) int {
	return int(score>>5) + 3
}

// Odds returns n such that a single usage increments score with
// probability 1/n. A negative bucket always increments; shifting by it
// would panic.
func Odds(score int8) int {
	b := Bucket(score)
	if b < 0 {
		return 1
	}
	return 2 << b
}

// Step applies one usage event. intN must return a uniform value in [0, n).
// It reports false when the score stays put, either because the draw missed
// or because the score is already saturated.
func Step(score int8, intN func(n int) int) (int8, bool) {
	if score >= models.MaxScore {
		return models.MaxScore, false
	}
	odds := Odds(score)
	if odds > 1 && intN(odds) != 0 {
		return score, false
	}
	return score + 1, true
}
