package model

import "time"

// Namespace partitions term ids and postings between the title and the body
// of a document.
type Namespace string

const (
	Title Namespace = "title"
	Body  Namespace = "body"
)

var Namespaces = []Namespace{Title, Body}

func (ns Namespace) Valid() bool {
	return ns == Title || ns == Body
}

// DocumentRef is the persisted metadata of a crawled page.
type DocumentRef struct {
	Id 				uint32		`json:"id"`
	URL				string		`json:"url"`
	LastModified 	time.Time	`json:"last_modified"`
	Size			int64		`json:"size"`
	Title 			string		`json:"title"`
}

// Occurrence is one position of a stemmed term inside one field of a
// document. SurfaceForm is empty when the original token equals the stem.
type Occurrence struct {
	DocId 		uint32	`json:"doc_id"`
	Paragraph 	int		`json:"paragraph"`
	Sentence 	int		`json:"sentence"`
	Position 	int		`json:"position"`
	SurfaceForm string	`json:"surface_form"`
}

// Less orders occurrences by paragraph, sentence and position.
func (o Occurrence) Less(other Occurrence) bool {
	if o.Paragraph != other.Paragraph {
		return o.Paragraph < other.Paragraph
	}
	if o.Sentence != other.Sentence {
		return o.Sentence < other.Sentence
	}
	return o.Position < other.Position
}

// TermOccurrence pairs an occurrence with the stem it belongs to.
type TermOccurrence struct {
	Stem string
	Occurrence
}

// DocumentContent is what extraction produces from a fetched page.
type DocumentContent struct {
	TitleTerms 	[]TermOccurrence
	BodyTerms 	[]TermOccurrence
	Children 	[]string
}

func (c *DocumentContent) Terms(ns Namespace) []TermOccurrence {
	if ns == Title {
		return c.TitleTerms
	}
	return c.BodyTerms
}

// Keyword is a stem with its frequency inside one document field.
type Keyword struct {
	Stem 		string	`json:"stem"`
	Frequency 	int		`json:"frequency"`
}
