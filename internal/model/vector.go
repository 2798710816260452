package model

import (
	"math"
	"strconv"
	"strings"
)

// SearchVector maps stems to weights. RequiredPhrases holds stemmed
// sequences that must appear adjacent in a matching document.
type SearchVector struct {
	Weights 		map[string]float64
	RequiredPhrases [][]string
}

func NewSearchVector() *SearchVector {
	return &SearchVector{Weights: make(map[string]float64)}
}

func (v *SearchVector) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Weights)
}

func (v *SearchVector) Norm() float64 {
	var sum float64
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

func (v *SearchVector) String() string {
	parts := make([]string, 0, len(v.Weights))
	for term, w := range v.Weights {
		parts = append(parts, term+" "+strconv.FormatFloat(w, 'f', 4, 64))
	}
	return strings.Join(parts, ", ")
}

// Result is one ranked document.
type Result struct {
	Document 	DocumentRef	`json:"document"`
	Score 		float64		`json:"score"`
}
