package searcher

import (
	"math"
	"strings"
	"sync"

	"github.com/box1bs/spyglass/internal/model"
	"github.com/box1bs/spyglass/pkg/textHandling"
)

// corpusView caches per-document terms and vectors plus document
// frequencies for the lifetime of one search.
type corpusView struct {
	idx 	index
	total 	int
	dfs 	*sync.Map
	vectors *sync.Map
	docTerms *sync.Map
}

type viewKey struct {
	docId 	uint32
	ns 		model.Namespace
}

func (s *Searcher) newCorpusView() (*corpusView, error) {
	total, err := s.idx.GetDocumentsCount()
	if err != nil {
		return nil, err
	}
	return &corpusView{
		idx: 		s.idx,
		total: 		total,
		dfs: 		new(sync.Map),
		vectors: 	new(sync.Map),
		docTerms: 	new(sync.Map),
	}, nil
}

func (v *corpusView) terms(docId uint32, ns model.Namespace) ([]model.TermOccurrence, error) {
	key := viewKey{docId, ns}
	if cached, ok := v.docTerms.Load(key); ok {
		return cached.([]model.TermOccurrence), nil
	}
	terms, err := v.idx.DocumentTerms(ns, docId)
	if err != nil {
		return nil, err
	}
	v.docTerms.Store(key, terms)
	return terms, nil
}

func (v *corpusView) documentFrequency(ns model.Namespace, stem string) (int, error) {
	key := string(ns) + ":" + stem
	if cached, ok := v.dfs.Load(key); ok {
		return cached.(int), nil
	}
	df, err := v.idx.DocumentFrequency(ns, stem)
	if err != nil {
		return 0, err
	}
	v.dfs.Store(key, df)
	return df, nil
}

// vector weights every stem of the document as tf * log2(N/df) / maxTf.
func (v *corpusView) vector(docId uint32, ns model.Namespace) (*model.SearchVector, error) {
	key := viewKey{docId, ns}
	if cached, ok := v.vectors.Load(key); ok {
		return cached.(*model.SearchVector), nil
	}

	terms, err := v.terms(docId, ns)
	if err != nil {
		return nil, err
	}
	tf := make(map[string]int)
	maxTf := 0
	for _, t := range terms {
		tf[t.Stem]++
		maxTf = max(maxTf, tf[t.Stem])
	}

	vec := model.NewSearchVector()
	for stem, freq := range tf {
		df, err := v.documentFrequency(ns, stem)
		if err != nil {
			return nil, err
		}
		if df == 0 {
			continue
		}
		vec.Weights[stem] = float64(freq) * math.Log2(float64(v.total)/float64(df)) / float64(maxTf)
	}
	v.vectors.Store(key, vec)
	return vec, nil
}

// CosineSimilarity is computed over the terms both vectors share. Vectors
// without common terms or with a zero norm score 0.
func CosineSimilarity(a, b *model.SearchVector) float64 {
	if a.Len() == 0 || b.Len() == 0 {
		return 0
	}
	small, large := a, b
	if small.Len() > large.Len() {
		small, large = large, small
	}

	var dot float64
	shared := false
	for term, w := range small.Weights {
		if other, ok := large.Weights[term]; ok {
			dot += w * other
			shared = true
		}
	}
	if !shared {
		return 0
	}
	norm := a.Norm() * b.Norm()
	if norm == 0 {
		return 0
	}
	return dot / norm
}

// BuildQueryVector turns a raw query into stem weights. Quoted spans also
// become required phrases. A quote without a closing pair is plain text.
func BuildQueryVector(raw string) *model.SearchVector {
	vec := model.NewSearchVector()
	var plain strings.Builder

	rest := raw
	for {
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			break
		}
		closing := strings.IndexByte(rest[open+1:], '"')
		if closing < 0 {
			break
		}
		plain.WriteString(rest[:open])
		plain.WriteByte(' ')
		if phrase := textHandling.Terms(rest[open+1 : open+1+closing]); len(phrase) > 0 {
			vec.RequiredPhrases = append(vec.RequiredPhrases, phrase)
			for _, stem := range phrase {
				vec.Weights[stem] = 1
			}
		}
		rest = rest[open+closing+2:]
	}
	plain.WriteString(strings.ReplaceAll(rest, `"`, " "))

	for _, stem := range textHandling.Terms(plain.String()) {
		vec.Weights[stem] = 1
	}
	return vec
}

// HasPhrase reports whether phrase occurs as consecutive terms of one
// paragraph. Sentence boundaries inside a paragraph do not break a match.
// terms must be ordered by paragraph, sentence and position.
func HasPhrase(terms []model.TermOccurrence, phrase []string) bool {
	if len(phrase) == 0 {
		return true
	}
	fallback := phraseFallback(phrase)
	cursor := 0
	paragraph := -1
	for _, t := range terms {
		if t.Paragraph != paragraph {
			paragraph = t.Paragraph
			cursor = 0
		}
		for cursor > 0 && t.Stem != phrase[cursor] {
			cursor = fallback[cursor-1]
		}
		if t.Stem == phrase[cursor] {
			cursor++
		}
		if cursor == len(phrase) {
			return true
		}
	}
	return false
}

// phraseFallback holds, for every prefix of phrase, the length of its longest
// proper prefix that is also a suffix, so a failed match resumes from there.
func phraseFallback(phrase []string) []int {
	fallback := make([]int, len(phrase))
	k := 0
	for i := 1; i < len(phrase); i++ {
		for k > 0 && phrase[i] != phrase[k] {
			k = fallback[k-1]
		}
		if phrase[i] == phrase[k] {
			k++
		}
		fallback[i] = k
	}
	return fallback
}
