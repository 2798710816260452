package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/box1bs/spyglass/internal/model"
	"github.com/box1bs/spyglass/pkg/textHandling"
	"golang.org/x/net/html"
)

// page is a fetched and parsed document before it reaches the store.
type page struct {
	docId 			uint32
	title 			string
	lastModified 	time.Time
	size 			int64
	content 		*model.DocumentContent
}

func (p *page) document(uri string) *model.DocumentRef {
	return &model.DocumentRef{
		Id: 			p.docId,
		URL: 			uri,
		LastModified: 	p.lastModified,
		Size: 			p.size,
		Title: 			p.title,
	}
}

func (ws *webScraper) fetch(ctx context.Context, rawURL string) (*page, error) {
	uri, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedLink, err)
	}

	ctx, cancel := ws.requestContext(ctx)
	defer cancel()

	if ws.cfg.RespectRobots && !ws.robots.allowed(ctx, uri) {
		return nil, fmt.Errorf("%w: %s is disallowed by robots.txt", model.ErrFetchFailure, rawURL)
	}
	if err := ws.limiters.wait(ctx, uri.Host); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFetchFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedLink, err)
	}
	req.Header.Set("User-Agent", ws.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := ws.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: non-2xx status code: %d", model.ErrFetchFailure, resp.StatusCode)
	}
	ctype := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(ctype), "text/html") {
		return nil, fmt.Errorf("%w: unsupported content type: %s", model.ErrFetchFailure, ctype)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFetchFailure, err)
	}

	title, paragraphs, links := parseHTMLStream(body, resp.Request.URL)
	return &page{
		title: 			title,
		lastModified: 	lastModified(resp.Header, time.Now()),
		size: 			contentSize(resp, len(body)),
		content: 		extractContent(title, paragraphs, links),
	}, nil
}

// lastModified prefers Last-Modified, then Date, then the fetch time.
func lastModified(h http.Header, fetchedAt time.Time) time.Time {
	for _, name := range []string{"Last-Modified", "Date"} {
		if v := h.Get(name); v != "" {
			if t, err := http.ParseTime(v); err == nil {
				return t.UTC()
			}
		}
	}
	return fetchedAt.UTC()
}

// contentSize prefers a Size header, then Content-Length, then the number
// of body bytes read.
func contentSize(resp *http.Response, read int) int64 {
	for _, name := range []string{"Size", "Content-Length"} {
		if v := resp.Header.Get(name); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
				return n
			}
		}
	}
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	return int64(read)
}

var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {}, "table": {}, "tr": {}, "td": {}, "th": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {}, "section": {}, "article": {}, "header": {},
	"footer": {}, "nav": {}, "aside": {}, "main": {}, "blockquote": {}, "pre": {}, "dd": {}, "dt": {},
	"body": {}, "form": {}, "hr": {}, "figcaption": {},
}

var skipTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {},
}

// parseHTMLStream walks the token stream once and returns the page title,
// the body text grouped into paragraphs by block elements, and the
// deduplicated absolute links. Links that cannot be resolved are dropped.
func parseHTMLStream(content []byte, base *url.URL) (title string, paragraphs []string, links []string) {
	tokenizer := html.NewTokenizer(bytes.NewReader(content))
	var (
		inTitle 	bool
		skipDepth 	int
		current 	strings.Builder
		titleText 	strings.Builder
		seen 		= make(map[string]struct{})
	)
	links = make([]string, 0)

	flush := func() {
		text := strings.Join(strings.Fields(current.String()), " ")
		current.Reset()
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}

		switch tokenType {
		case html.StartTagToken, html.SelfClosingTagToken:
			t := tokenizer.Token()
			tagName := strings.ToLower(t.Data)
			switch {
			case tagName == "title":
				inTitle = tokenType == html.StartTagToken
				continue
			case tagName == "a":
				for _, attr := range t.Attr {
					if strings.ToLower(attr.Key) != "href" {
						continue
					}
					link, err := resolveLink(attr.Val, base)
					if err != nil {
						break
					}
					if _, ok := seen[link]; !ok {
						seen[link] = struct{}{}
						links = append(links, link)
					}
					break
				}
			}
			if _, ok := skipTags[tagName]; ok && tokenType == html.StartTagToken {
				skipDepth++
				continue
			}
			if _, ok := blockTags[tagName]; ok {
				flush()
			}

		case html.EndTagToken:
			t := tokenizer.Token()
			tagName := strings.ToLower(t.Data)
			if tagName == "title" {
				inTitle = false
				continue
			}
			if _, ok := skipTags[tagName]; ok {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if _, ok := blockTags[tagName]; ok {
				flush()
			}

		case html.TextToken:
			if inTitle {
				titleText.Write(tokenizer.Text())
				continue
			}
			if skipDepth > 0 {
				continue
			}
			current.Write(tokenizer.Text())
		}
	}
	flush()
	return strings.Join(strings.Fields(titleText.String()), " "), paragraphs, links
}

// extractContent turns the title and body paragraphs into term
// occurrences. The title is paragraph 0 of the title field.
func extractContent(title string, paragraphs []string, links []string) *model.DocumentContent {
	content := &model.DocumentContent{Children: links}
	content.TitleTerms = paragraphTerms(0, title)
	for i, paragraph := range paragraphs {
		content.BodyTerms = append(content.BodyTerms, paragraphTerms(i, paragraph)...)
	}
	return content
}

func paragraphTerms(paragraph int, text string) []model.TermOccurrence {
	tokens := textHandling.AnalyzeParagraph(text)
	out := make([]model.TermOccurrence, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, model.TermOccurrence{
			Stem: t.Stem,
			Occurrence: model.Occurrence{
				Paragraph: 		paragraph,
				Sentence: 		t.Sentence,
				Position: 		t.Position,
				SurfaceForm: 	t.Surface,
			},
		})
	}
	return out
}
