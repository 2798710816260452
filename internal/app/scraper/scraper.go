package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/box1bs/spyglass/internal/model"
	"github.com/box1bs/spyglass/pkg/logger"
	"github.com/box1bs/spyglass/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

type indexStore interface {
	AllocateDocId() (uint32, error)
	GetDocumentByURL(string) (*model.DocumentRef, error)
	IndexDocument(*model.DocumentRef, *model.DocumentContent, bool) error
	InsertLink(uint32, string) error
}

type webScraper struct {
	client         	*http.Client
	repo 			indexStore
	cfg 		  	*ConfigData
	log 			*logger.Logger
	metrics 		*metrics.Metrics
	robots 			*robotsCache
	limiters 		*hostLimiters
}

type ConfigData struct {
	Workers 		int
	Rate 			int
	FetchTimeout 	time.Duration
	RespectRobots 	bool
	UserAgent 		string
}

const (
	defaultUserAgent = "spyglass/1.0 (+https://github.com/box1bs/spyglass)"
	deadlineTime = 30 * time.Second
	maxBodySize = 10 * 1024 * 1024
)

func NewScraper(repo indexStore, cfg *ConfigData, l *logger.Logger, m *metrics.Metrics) *webScraper {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = deadlineTime
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	ws := &webScraper{
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
			Transport: &http.Transport{
				IdleConnTimeout:   15 * time.Second,
				DisableKeepAlives: false,
				ForceAttemptHTTP2: true,
			},
		},
		repo: 			repo,
		cfg: 			cfg,
		log:			l,
		metrics: 		m,
		limiters: 		newHostLimiters(cfg.Rate),
	}
	ws.robots = newRobotsCache(ws.client, cfg.UserAgent)
	return ws
}

type fetchResult struct {
	page 	*page
	err 	error
	took 	time.Duration
}

// Discover crawls breadth-first from base until threshold pages were newly
// indexed or reindexed, or the queue runs dry. It returns those pages' urls.
// Cancelling ctx stops the crawl after the wave in flight; the pages indexed
// so far are returned with ctx.Err().
func (ws *webScraper) Discover(ctx context.Context, base string, threshold int) ([]string, error) {
	defer ws.limiters.reset()

	indexed := make([]string, 0, max(threshold, 0))
	if threshold <= 0 {
		return indexed, nil
	}
	seed, err := normalizeUrl(base)
	if err != nil {
		return nil, fmt.Errorf("seed %q: %w", base, err)
	}

	visited := new(sync.Map)
	visited.Store(seed, struct{}{})
	queue := []string{seed}

	for len(indexed) < threshold && len(queue) > 0 && ctx.Err() == nil {
		n := min(ws.cfg.Workers, len(queue), threshold-len(indexed))
		batch := queue[:n]
		queue = queue[n:]

		for i, res := range ws.fetchAll(ctx, batch) {
			current := batch[i]
			if res.err != nil {
				ws.metrics.ObserveFetch("failed", res.took)
				ws.log.Write(logger.NewMessage(logger.CRAWLER_LAYER, logger.ERROR, "error fetching page: %s, with error: %v", current, res.err))
				continue
			}

			outcome, children, err := ws.handlePage(current, res.page)
			if errors.Is(err, model.ErrNotInitialized) {
				return indexed, err
			}
			if err != nil {
				ws.metrics.ObserveFetch("failed", res.took)
				ws.log.Write(logger.NewMessage(logger.CRAWLER_LAYER, logger.CRITICAL_ERROR, "error storing page: %s, with error: %v", current, err))
				continue
			}
			ws.metrics.ObserveFetch(outcome, res.took)
			if outcome != unchanged {
				indexed = append(indexed, current)
			}
			queue = append(queue, ws.recordChildren(res.page.docId, children, visited)...)
		}
	}
	if err := ctx.Err(); err != nil {
		ws.log.Write(logger.NewMessage(logger.CRAWLER_LAYER, logger.INFO, "crawl from %s interrupted after %d pages", seed, len(indexed)))
		return indexed, err
	}
	ws.log.Write(logger.NewMessage(logger.CRAWLER_LAYER, logger.INFO, "crawl from %s finished, %d pages indexed", seed, len(indexed)))
	return indexed, nil
}

// fetchAll downloads and parses the batch concurrently. Results keep the
// order of the batch.
func (ws *webScraper) fetchAll(ctx context.Context, batch []string) []fetchResult {
	results := make([]fetchResult, len(batch))
	var g errgroup.Group
	g.SetLimit(ws.cfg.Workers)
	for i, u := range batch {
		g.Go(func() error {
			start := time.Now()
			p, err := ws.fetch(ctx, u)
			results[i] = fetchResult{page: p, err: err, took: time.Since(start)}
			return nil
		})
	}
	g.Wait()
	return results
}

const (
	unchanged 	= "unchanged"
	reindexed 	= "reindexed"
	newlyIndexed = "indexed"
)

// handlePage stores a fetched page. Known pages are only rewritten when
// their last modified time moved forward.
func (ws *webScraper) handlePage(current string, p *page) (string, []string, error) {
	existing, err := ws.repo.GetDocumentByURL(current)
	switch {
	case err == nil:
		p.docId = existing.Id
		if !p.lastModified.After(existing.LastModified) {
			return unchanged, p.content.Children, nil
		}
		if err := ws.repo.IndexDocument(p.document(current), p.content, true); err != nil {
			return "", nil, err
		}
		ws.metrics.DocumentWritten("reindex")
		return reindexed, p.content.Children, nil

	case errors.Is(err, model.ErrNotFound):
		id, err := ws.repo.AllocateDocId()
		if err != nil {
			return "", nil, err
		}
		p.docId = id
		if err := ws.repo.IndexDocument(p.document(current), p.content, false); err != nil {
			return "", nil, err
		}
		ws.metrics.DocumentWritten("new")
		return newlyIndexed, p.content.Children, nil
	}
	return "", nil, err
}

// recordChildren marks unseen children visited, links them to the parent
// and returns them for the queue.
func (ws *webScraper) recordChildren(parent uint32, children []string, visited *sync.Map) []string {
	next := make([]string, 0, len(children))
	for _, child := range children {
		if _, loaded := visited.LoadOrStore(child, struct{}{}); loaded {
			continue
		}
		next = append(next, child)
		if err := ws.repo.InsertLink(parent, child); err != nil {
			ws.log.Write(logger.NewMessage(logger.CRAWLER_LAYER, logger.ERROR, "error linking %d -> %s: %v", parent, child, err))
		}
	}
	return next
}

func (ws *webScraper) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, ws.cfg.FetchTimeout)
}
