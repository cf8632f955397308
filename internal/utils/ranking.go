package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity     float64 // time decay exponent
	ScaleFactor float64
	Precision   float64 // hotness is stored as an integer, multiplied by this
}

var DefaultConfig = RankConfig{
	Gravity:     1.5,
	ScaleFactor: 100.0,
	Precision:   100.0,
}

// Hotness ranks a story by its net score and age. Stories with a negative
// score rank below every fresh story with a score of zero.
func Hotness(score int, submitted, now time.Time) int {
	hours := now.Sub(submitted).Hours()
	if hours < 0 {
		hours = 0
	}

	// log10(|score| + 1) keeps a few early votes from dominating
	sign := 1.0
	if score < 0 {
		sign = -1.0
	}
	logScore := math.Log10(math.Abs(float64(score))+1) * sign

	numerator := (logScore + 1) * DefaultConfig.ScaleFactor
	decay := math.Pow(hours+2, DefaultConfig.Gravity)

	return int(math.Round(numerator / decay * DefaultConfig.Precision))
}
