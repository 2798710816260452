package searcher

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/box1bs/spyglass/internal/model"
)

const (
	reportKeywords = 10
	reportChildren = 10
	reportSeparator = "-------------------------------------------------"
)

// Report writes a summary of the first limit documents in id order: title,
// url, last modified time and size, the ten most frequent body words and up
// to ten child links. A non-positive limit reports every document.
func (s *Searcher) Report(w io.Writer, limit int) error {
	docs, err := s.idx.GetAllDocuments()
	if err != nil {
		return err
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	bw := bufio.NewWriter(w)
	for _, doc := range docs {
		if err := s.reportDocument(bw, doc); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (s *Searcher) reportDocument(w *bufio.Writer, doc *model.DocumentRef) error {
	terms, err := s.idx.DocumentTerms(model.Body, doc.Id)
	if err != nil {
		return err
	}
	children, err := s.idx.ChildrenOf(doc.Id)
	if err != nil {
		return err
	}

	keywords := topKeywords(terms, reportKeywords, func(t model.TermOccurrence) string {
		if t.SurfaceForm != "" {
			return t.SurfaceForm
		}
		return t.Stem
	})
	pairs := make([]string, 0, len(keywords))
	for _, k := range keywords {
		pairs = append(pairs, fmt.Sprintf("%s %d", k.Stem, k.Frequency))
	}
	if len(children) > reportChildren {
		children = children[:reportChildren]
	}

	fmt.Fprintln(w, doc.Title)
	fmt.Fprintln(w, doc.URL)
	fmt.Fprintf(w, "%s, %d\n", doc.LastModified.Format("Mon, 02 Jan 2006 15:04:05 MST"), doc.Size)
	fmt.Fprintln(w, strings.Join(pairs, "; "))
	for _, child := range children {
		fmt.Fprintln(w, child)
	}
	_, err = fmt.Fprintln(w, reportSeparator)
	return err
}
