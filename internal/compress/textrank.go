package compress

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/halcyonchat/halcyon/internal/shared/tokenutils"
)

// TextRank parameters. Damping and tolerance are the values from the
// original Mihalcea & Tarau paper; iteration count is a safety bound.
const (
	trDamping   = 0.85
	trTolerance = 1e-4
	trMaxIter   = 50
)

var (
	sentenceRe = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
	wordRe     = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

// splitSentences breaks text into trimmed sentences.
func splitSentences(text string) []string {
	var out []string
	for _, m := range sentenceRe.FindAllString(text, -1) {
		if s := strings.TrimSpace(m); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// contentWords lowercases and tokenises a sentence, dropping stopwords.
func contentWords(sentence string, stop map[string]bool) []string {
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
		if !stop[w] {
			out = append(out, w)
		}
	}
	return out
}

// textRank ranks sentences by running PageRank over a sentence-similarity
// graph and returns the highest-scoring subset, in original order, whose
// total token count stays within targetTokens (always at least one
// sentence).
func textRank(sentences []string, targetTokens int, stop map[string]bool) []string {
	n := len(sentences)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return sentences
	}

	words := make([][]string, n)
	for i, s := range sentences {
		words[i] = contentWords(s, stop)
	}

	// Row-normalised similarity matrix.
	sim := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		rowSum := 0.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v := similarity(words[i], words[j])
			sim.Set(i, j, v)
			rowSum += v
		}
		if rowSum > 0 {
			for j := 0; j < n; j++ {
				sim.Set(i, j, sim.At(i, j)/rowSum)
			}
		}
	}

	scores := pageRank(sim, n)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	// Greedily take top-ranked sentences while the token budget allows.
	picked := map[int]bool{}
	budget := targetTokens
	for _, idx := range order {
		cost := tokenutils.Count(sentences[idx])
		if len(picked) > 0 && cost > budget {
			continue
		}
		picked[idx] = true
		budget -= cost
		if budget <= 0 {
			break
		}
	}

	var out []string
	for i, s := range sentences {
		if picked[i] {
			out = append(out, s)
		}
	}
	return out
}

// pageRank runs the power iteration r ← (1-d)/n + d·Sᵀr to convergence.
func pageRank(sim *mat.Dense, n int) []float64 {
	r := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		r.SetVec(i, 1.0/float64(n))
	}

	next := mat.NewVecDense(n, nil)
	base := (1.0 - trDamping) / float64(n)

	for it := 0; it < trMaxIter; it++ {
		next.MulVec(sim.T(), r)
		for i := 0; i < n; i++ {
			next.SetVec(i, base+trDamping*next.AtVec(i))
		}
		if floats.Distance(next.RawVector().Data, r.RawVector().Data, 1) < trTolerance {
			r.CopyVec(next)
			break
		}
		r.CopyVec(next)
	}

	out := make([]float64, n)
	copy(out, r.RawVector().Data)
	return out
}

// similarity is the classic TextRank overlap measure: shared words
// normalised by the log sentence lengths.
func similarity(a, b []string) float64 {
	if len(a) < 2 || len(b) < 2 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	shared := 0
	for _, w := range b {
		if set[w] {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}
	return float64(shared) / (math.Log(float64(len(a))) + math.Log(float64(len(b))))
}
