package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/chunker"
)

// DefaultSimilarityInputLimit bounds how much of each text is embedded when
// comparing a résumé with a job posting.
const DefaultSimilarityInputLimit = 3000

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Similarity embeds the first limit runes of a and b in one request and
// returns their cosine similarity clamped to [0, 1].
func Similarity(ctx context.Context, p Provider, a, b string, limit int) (float64, error) {
	if limit <= 0 {
		limit = DefaultSimilarityInputLimit
	}
	vecs, err := p.Embed(ctx, []string{chunker.Truncate(a, limit), chunker.Truncate(b, limit)})
	if err != nil {
		return 0, err
	}
	if len(vecs) != 2 {
		return 0, fmt.Errorf("embedding: got %d vectors for 2 inputs", len(vecs))
	}
	return math.Max(0, math.Min(1, Cosine(vecs[0], vecs[1]))), nil
}
