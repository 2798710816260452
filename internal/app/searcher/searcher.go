package searcher

import (
	"cmp"
	"slices"
	"sort"
	"time"

	"github.com/box1bs/spyglass/internal/model"
	"github.com/box1bs/spyglass/pkg/logger"
	"github.com/box1bs/spyglass/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

type index interface {
	GetDocument(uint32) (*model.DocumentRef, error)
	GetAllDocuments() ([]*model.DocumentRef, error)
	GetDocumentsCount() (int, error)
	DocumentFrequency(model.Namespace, string) (int, error)
	DocumentTerms(model.Namespace, uint32) ([]model.TermOccurrence, error)
	ChildrenOf(uint32) ([]string, error)
	ParentsOf(uint32) ([]*model.DocumentRef, error)
}

const (
	DefaultTitleBoost = 1.5
	keywordsInHit = 5
)

type Searcher struct {
	idx 		index
	log 		*logger.Logger
	metrics 	*metrics.Metrics
	titleBoost 	float64
	workers 	int
}

func NewSearcher(idx index, titleBoost float64, workers int, l *logger.Logger, m *metrics.Metrics) *Searcher {
	if titleBoost <= 0 {
		titleBoost = DefaultTitleBoost
	}
	if workers <= 0 {
		workers = 4
	}
	return &Searcher{
		idx: 		idx,
		log: 		l,
		metrics: 	m,
		titleBoost: titleBoost,
		workers: 	workers,
	}
}

// Hit is a ranked document together with its link neighbourhood and its
// most frequent body stems.
type Hit struct {
	model.Result
	Keywords 	[]model.Keyword	`json:"keywords"`
	Parents 	[]string		`json:"parents"`
	Children 	[]string		`json:"children"`
}

// Query parses raw, ranks the whole corpus against it and enriches the top
// limit results. A non-positive limit keeps every match.
func (s *Searcher) Query(raw string, limit int) ([]*Hit, error) {
	start := time.Now()
	hits, err := s.query(raw, limit)
	s.metrics.ObserveSearch(len(hits), err, time.Since(start))
	if err != nil {
		s.log.Write(logger.NewMessage(logger.SEARCHER_LAYER, logger.ERROR, "error searching %q: %v", raw, err))
		return nil, err
	}
	s.log.Write(logger.NewMessage(logger.SEARCHER_LAYER, logger.DEBUG, "query %q matched %d documents in %v", raw, len(hits), time.Since(start)))
	return hits, nil
}

func (s *Searcher) query(raw string, limit int) ([]*Hit, error) {
	corpus, err := s.idx.GetAllDocuments()
	if err != nil {
		return nil, err
	}
	results, err := s.Search(BuildQueryVector(raw), corpus, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]*Hit, len(results))
	for i, res := range results {
		hit, err := s.enrich(res)
		if err != nil {
			return nil, err
		}
		hits[i] = hit
	}
	return hits, nil
}

// Document returns the stored page with its keywords and links and a zero
// score.
func (s *Searcher) Document(id uint32) (*Hit, error) {
	doc, err := s.idx.GetDocument(id)
	if err != nil {
		return nil, err
	}
	return s.enrich(model.Result{Document: *doc})
}

func (s *Searcher) enrich(res model.Result) (*Hit, error) {
	hit := &Hit{Result: res}
	terms, err := s.idx.DocumentTerms(model.Body, res.Document.Id)
	if err != nil {
		return nil, err
	}
	hit.Keywords = topKeywords(terms, keywordsInHit, func(t model.TermOccurrence) string { return t.Stem })

	parents, err := s.idx.ParentsOf(res.Document.Id)
	if err != nil {
		return nil, err
	}
	hit.Parents = make([]string, 0, len(parents))
	for _, p := range parents {
		hit.Parents = append(hit.Parents, p.URL)
	}
	hit.Children, err = s.idx.ChildrenOf(res.Document.Id)
	if err != nil {
		return nil, err
	}
	return hit, nil
}

// Search scores every document of corpus against query, drops zero scores
// and documents missing a required phrase, and sorts the rest by score.
func (s *Searcher) Search(query *model.SearchVector, corpus []*model.DocumentRef, limit int) ([]model.Result, error) {
	if query.Len() == 0 || len(corpus) == 0 {
		return []model.Result{}, nil
	}
	view, err := s.newCorpusView()
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(corpus))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, doc := range corpus {
		g.Go(func() error {
			score, err := s.score(view, doc.Id, query)
			scores[i] = score
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]model.Result, 0)
	for i, doc := range corpus {
		if scores[i] == 0 {
			continue
		}
		results = append(results, model.Result{Document: *doc, Score: scores[i]})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// score returns 0 for documents that fail a phrase constraint.
func (s *Searcher) score(view *corpusView, docId uint32, query *model.SearchVector) (float64, error) {
	titleVec, err := view.vector(docId, model.Title)
	if err != nil {
		return 0, err
	}
	bodyVec, err := view.vector(docId, model.Body)
	if err != nil {
		return 0, err
	}
	score := CosineSimilarity(titleVec, query)*s.titleBoost + CosineSimilarity(bodyVec, query)
	if score == 0 {
		return 0, nil
	}

	for _, phrase := range query.RequiredPhrases {
		title, err := view.terms(docId, model.Title)
		if err != nil {
			return 0, err
		}
		if HasPhrase(title, phrase) {
			continue
		}
		body, err := view.terms(docId, model.Body)
		if err != nil {
			return 0, err
		}
		if !HasPhrase(body, phrase) {
			return 0, nil
		}
	}
	return score, nil
}

// BuildDocumentVector weights the terms of docId in ns against the current
// corpus.
func (s *Searcher) BuildDocumentVector(docId uint32, ns model.Namespace) (*model.SearchVector, error) {
	view, err := s.newCorpusView()
	if err != nil {
		return nil, err
	}
	return view.vector(docId, ns)
}

// topKeywords counts terms by key and returns the n most frequent, ties
// broken alphabetically.
func topKeywords(terms []model.TermOccurrence, n int, key func(model.TermOccurrence) string) []model.Keyword {
	freq := make(map[string]int)
	for _, t := range terms {
		freq[key(t)]++
	}
	out := make([]model.Keyword, 0, len(freq))
	for stem, f := range freq {
		out = append(out, model.Keyword{Stem: stem, Frequency: f})
	}
	slices.SortFunc(out, func(a, b model.Keyword) int {
		if a.Frequency != b.Frequency {
			return cmp.Compare(b.Frequency, a.Frequency)
		}
		return cmp.Compare(a.Stem, b.Stem)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
