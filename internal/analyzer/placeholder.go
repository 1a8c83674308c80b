package analyzer

import (
	"hash/fnv"
	"math"
	"math/rand"

	"coursevault/internal/models"
)

// placeholderTopics are the chapter labels used for locally generated results.
var placeholderTopics = []string{
	"Introduction to the basic concepts",
	"Explanation of the core principles",
	"Demonstration of the experiment",
	"Analysis of the experimental results",
	"Discussion of practical applications",
	"Summary of the key points",
	"Comparison of competing theories",
	"Historical background",
	"Outlook on future developments",
	"Answers to common questions",
}

// placeholderResult generates a plausible chapter list for a video without
// calling the provider. The output is deterministic per video ID so repeated
// fallback analyses of the same video agree with each other.
func placeholderResult(videoID string) []models.KnowledgePoint {
	h := fnv.New64a()
	_, _ = h.Write([]byte(videoID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	count := rng.Intn(4) + 5 // 5 to 8 chapters
	points := make([]models.KnowledgePoint, 0, count)

	var current float64
	for i := 0; i < count; i++ {
		duration := rng.Float64()*20 + 10 // 10 to 30 seconds per chapter
		start := round1(current)
		end := round1(current + duration)
		points = append(points, models.KnowledgePoint{
			StartTime: start,
			EndTime:   &end,
			Content:   placeholderTopics[rng.Intn(len(placeholderTopics))],
		})
		current += duration + rng.Float64()*5 // up to 5 seconds between chapters
	}
	return points
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
