package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/box1bs/spyglass/internal/model"
	"github.com/box1bs/spyglass/internal/repository"
	"github.com/box1bs/spyglass/pkg/logger"
	"github.com/box1bs/spyglass/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sitePage struct {
	body         string
	contentType  string
	lastModified time.Time
}

// site is a tiny in-memory web site. Unknown paths, robots.txt included,
// answer 404 unless they were added.
type site struct {
	mu    sync.Mutex
	pages map[string]sitePage
	hits  map[string]int
}

func newSite() *site {
	return &site{pages: make(map[string]sitePage), hits: make(map[string]int)}
}

func (s *site) set(path string, p sitePage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = p
}

func (s *site) hitsOf(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, ok := s.pages[r.URL.Path]
	s.hits[r.URL.Path]++
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	ctype := p.contentType
	if ctype == "" {
		ctype = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	if !p.lastModified.IsZero() {
		w.Header().Set("Last-Modified", p.lastModified.UTC().Format(http.TimeFormat))
	}
	w.Write([]byte(p.body))
}

func newTestScraper(t *testing.T, workers int) (*webScraper, *repository.IndexRepository) {
	t.Helper()
	repo, err := repository.NewIndexRepository("", logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	ws := NewScraper(repo, &ConfigData{Workers: workers, FetchTimeout: 5 * time.Second}, logger.Nop(), nil)
	return ws, repo
}

func linkedSite() *site {
	s := newSite()
	s.set("/", sitePage{body: `<html><head><title>Home page</title></head><body>
		<p>Welcome to the machines.</p><a href="/b">b</a> <a href="/c#top">c</a></body></html>`})
	s.set("/b", sitePage{body: `<title>B</title><p>Second page</p><a href="/">home</a><a href="/c">c</a><a href="/d">d</a>`})
	s.set("/c", sitePage{body: `<title>C</title><p>Third page</p>`})
	s.set("/d", sitePage{body: `<title>D</title><p>Fourth page</p>`})
	return s
}

func TestDiscoverStopsAtThreshold(t *testing.T) {
	s := linkedSite()
	srv := httptest.NewServer(s)
	defer srv.Close()

	ws, repo := newTestScraper(t, 1)
	indexed, err := ws.Discover(context.Background(), srv.URL, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/b", srv.URL + "/c"}, indexed)

	home, err := repo.GetDocumentByURL(srv.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, "Home page", home.Title)
	children, err := repo.ChildrenOf(home.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/b", srv.URL + "/c"}, children)

	b, err := repo.GetDocumentByURL(srv.URL + "/b")
	require.NoError(t, err)
	children, err = repo.ChildrenOf(b.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/d"}, children, "only unvisited children get an edge")

	_, err = repo.GetDocumentByURL(srv.URL + "/d")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Zero(t, s.hitsOf("/d"))
}

func TestDiscoverNeverExceedsThresholdWithManyWorkers(t *testing.T) {
	s := linkedSite()
	srv := httptest.NewServer(s)
	defer srv.Close()

	ws, repo := newTestScraper(t, 4)
	indexed, err := ws.Discover(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Len(t, indexed, 2)

	count, err := repo.GetDocumentsCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	for _, path := range []string{"/", "/b", "/c", "/d"} {
		assert.LessOrEqual(t, s.hitsOf(path), 1, path)
	}
}

func TestDiscoverIndexesTerms(t *testing.T) {
	srv := httptest.NewServer(linkedSite())
	defer srv.Close()

	ws, repo := newTestScraper(t, 2)
	_, err := ws.Discover(context.Background(), srv.URL, 1)
	require.NoError(t, err)

	home, err := repo.GetDocumentByURL(srv.URL + "/")
	require.NoError(t, err)
	title, err := repo.DocumentTerms(model.Title, home.Id)
	require.NoError(t, err)
	require.Len(t, title, 2)
	assert.Equal(t, "home", title[0].Stem)
	assert.Equal(t, "page", title[1].Stem)

	body, err := repo.DocumentTerms(model.Body, home.Id)
	require.NoError(t, err)
	stems := make([]string, 0, len(body))
	for _, term := range body {
		stems = append(stems, term.Stem)
	}
	assert.Contains(t, stems, "welcom")
	assert.Contains(t, stems, "machin")
}

func TestDiscoverRevisitsOnlyChangedPages(t *testing.T) {
	s := linkedSite()
	before := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, path := range []string{"/", "/b", "/c", "/d"} {
		p := s.pages[path]
		p.lastModified = before
		s.set(path, p)
	}
	srv := httptest.NewServer(s)
	defer srv.Close()

	ws, repo := newTestScraper(t, 2)
	indexed, err := ws.Discover(context.Background(), srv.URL, 10)
	require.NoError(t, err)
	assert.Len(t, indexed, 4)

	indexed, err = ws.Discover(context.Background(), srv.URL, 10)
	require.NoError(t, err)
	assert.Empty(t, indexed)

	s.set("/c", sitePage{body: `<title>C</title><p>Fresh machines</p>`, lastModified: before.Add(time.Hour)})
	indexed, err = ws.Discover(context.Background(), srv.URL, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/c"}, indexed)

	c, err := repo.GetDocumentByURL(srv.URL + "/c")
	require.NoError(t, err)
	assert.True(t, c.LastModified.Equal(before.Add(time.Hour)))
	freq, err := repo.TermFrequencies(model.Body, c.Id)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"fresh": 1, "machin": 1}, freq)

	count, err := repo.GetDocumentsCount()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestDiscoverSkipsFetchFailures(t *testing.T) {
	s := newSite()
	s.set("/", sitePage{body: `<a href="/missing">x</a><a href="/image">y</a><a href="/empty">z</a><a href="mailto:a@b.c">m</a><a href="/ok">ok</a>`})
	s.set("/image", sitePage{body: "PNG", contentType: "image/png"})
	s.set("/empty", sitePage{})
	s.set("/ok", sitePage{body: "<p>fine</p>"})
	srv := httptest.NewServer(s)
	defer srv.Close()

	m := metrics.New(nil)
	repo, err := repository.NewIndexRepository("", logger.Nop())
	require.NoError(t, err)
	defer repo.Close()
	ws := NewScraper(repo, &ConfigData{Workers: 3}, logger.Nop(), m)

	indexed, err := ws.Discover(context.Background(), srv.URL, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/empty", srv.URL + "/ok"}, indexed)

	empty, err := repo.GetDocumentByURL(srv.URL + "/empty")
	require.NoError(t, err)
	for _, ns := range model.Namespaces {
		terms, err := repo.DocumentTerms(ns, empty.Id)
		require.NoError(t, err)
		assert.Empty(t, terms)
	}
	assert.Equal(t, 1, s.hitsOf("/missing"))
	assert.Equal(t, 1, s.hitsOf("/image"))
}

func TestDiscoverRejectsBadSeed(t *testing.T) {
	ws, _ := newTestScraper(t, 1)
	_, err := ws.Discover(context.Background(), "ftp://example.com", 1)
	assert.ErrorIs(t, err, model.ErrMalformedLink)

	indexed, err := ws.Discover(context.Background(), "http://example.com", 0)
	require.NoError(t, err)
	assert.Empty(t, indexed)
}

func TestDiscoverRespectsRobots(t *testing.T) {
	s := linkedSite()
	s.set("/robots.txt", sitePage{body: "User-agent: *\nDisallow: /c\n", contentType: "text/plain"})
	srv := httptest.NewServer(s)
	defer srv.Close()

	repo, err := repository.NewIndexRepository("", logger.Nop())
	require.NoError(t, err)
	defer repo.Close()
	ws := NewScraper(repo, &ConfigData{Workers: 1, RespectRobots: true}, logger.Nop(), nil)

	indexed, err := ws.Discover(context.Background(), srv.URL, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/b", srv.URL + "/d"}, indexed)
	assert.Zero(t, s.hitsOf("/c"))
	assert.Equal(t, 1, s.hitsOf("/robots.txt"))
}

func TestDiscoverWithRateLimit(t *testing.T) {
	srv := httptest.NewServer(linkedSite())
	defer srv.Close()

	repo, err := repository.NewIndexRepository("", logger.Nop())
	require.NoError(t, err)
	defer repo.Close()
	ws := NewScraper(repo, &ConfigData{Workers: 2, Rate: 50}, logger.Nop(), nil)

	indexed, err := ws.Discover(context.Background(), srv.URL, 10)
	require.NoError(t, err)
	assert.Len(t, indexed, 4)
}

func TestDiscoverStopsWhenCancelled(t *testing.T) {
	s := linkedSite()
	srv := httptest.NewServer(s)
	defer srv.Close()

	ws, _ := newTestScraper(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	indexed, err := ws.Discover(ctx, srv.URL, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, indexed)
	assert.Zero(t, s.hitsOf("/"))
}

func TestHostLimitersPaceEachHost(t *testing.T) {
	hl := newHostLimiters(20)
	ctx := context.Background()
	start := time.Now()
	for range 3 {
		require.NoError(t, hl.wait(ctx, "a.test"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	start = time.Now()
	require.NoError(t, hl.wait(ctx, "b.test"))
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, hl.wait(cancelled, "a.test"))
	assert.NoError(t, newHostLimiters(0).wait(cancelled, "a.test"))
}

func TestParseHTMLStream(t *testing.T) {
	base, err := url.Parse("http://Example.com/dir/page.html")
	require.NoError(t, err)
	doc := []byte(`<html><head><title> The  Title </title><style>p { color: red }</style></head>
<body>
<h1>Header</h1>
<p>First <b>bold</b> words.</p>
<script>var hidden = "nope";</script>
<div>Second<br>Third</div>
<a href="other.html#frag">one</a>
<a href="/abs">two</a>
<a href="http://example.com/abs">dup</a>
<a href="javascript:void(0)">js</a>
<a href="#top">anchor</a>
</body></html>`)

	title, paragraphs, links := parseHTMLStream(doc, base)
	assert.Equal(t, "The Title", title)
	assert.Equal(t, []string{"Header", "First bold words.", "Second", "Third", "one two dup js anchor"}, paragraphs)
	assert.Equal(t, []string{"http://example.com/dir/other.html", "http://example.com/abs"}, links)
}

func TestExtractContent(t *testing.T) {
	content := extractContent("Learning Go", []string{"Machines are learning.", "The end!"}, nil)
	require.Len(t, content.TitleTerms, 2)
	assert.Equal(t, "learn", content.TitleTerms[0].Stem)
	assert.Equal(t, "learning", content.TitleTerms[0].SurfaceForm)
	assert.Equal(t, "go", content.TitleTerms[1].Stem)
	assert.Equal(t, "", content.TitleTerms[1].SurfaceForm)

	require.Len(t, content.BodyTerms, 3)
	assert.Equal(t, model.Occurrence{Paragraph: 0, Sentence: 0, Position: 0, SurfaceForm: "machines"}, content.BodyTerms[0].Occurrence)
	assert.Equal(t, model.Occurrence{Paragraph: 0, Sentence: 0, Position: 2, SurfaceForm: "learning"}, content.BodyTerms[1].Occurrence)
	assert.Equal(t, "end", content.BodyTerms[2].Stem)
	assert.Equal(t, 1, content.BodyTerms[2].Paragraph)
	assert.Equal(t, 1, content.BodyTerms[2].Position)
}

func TestNormalizeUrl(t *testing.T) {
	tests := []struct {
		in, want string
		bad      bool
	}{
		{in: "HTTP://Example.COM", want: "http://example.com/"},
		{in: "https://example.com/Path?q=1#frag", want: "https://example.com/Path?q=1"},
		{in: " https://example.com/a b ", want: "https://example.com/ab"},
		{in: "mailto:someone@example.com", bad: true},
		{in: "/relative", bad: true},
	}
	for _, tt := range tests {
		got, err := normalizeUrl(tt.in)
		if tt.bad {
			assert.ErrorIs(t, err, model.ErrMalformedLink, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLastModifiedAndSize(t *testing.T) {
	fetched := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	h := http.Header{}
	assert.Equal(t, fetched, lastModified(h, fetched))
	h.Set("Date", "Tue, 02 Apr 2024 10:00:00 GMT")
	assert.Equal(t, time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC), lastModified(h, fetched))
	h.Set("Last-Modified", "Mon, 01 Apr 2024 09:00:00 GMT")
	assert.Equal(t, time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), lastModified(h, fetched))

	resp := &http.Response{Header: http.Header{}, ContentLength: -1}
	assert.EqualValues(t, 42, contentSize(resp, 42))
	resp.ContentLength = 10
	assert.EqualValues(t, 10, contentSize(resp, 42))
	resp.Header.Set("Content-Length", "12")
	assert.EqualValues(t, 12, contentSize(resp, 42))
	resp.Header.Set("Size", "7")
	assert.EqualValues(t, 7, contentSize(resp, 42))
}
