package srv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/box1bs/spyglass/configs"
	"github.com/box1bs/spyglass/internal/app/scraper"
	"github.com/box1bs/spyglass/internal/app/searcher"
	"github.com/box1bs/spyglass/internal/model"
	"github.com/box1bs/spyglass/internal/repository"
	"github.com/box1bs/spyglass/internal/server/validation"
	"github.com/box1bs/spyglass/pkg/logger"
	"github.com/box1bs/spyglass/pkg/metrics"
	"github.com/google/uuid"
)

type crawler interface {
	Discover(context.Context, string, int) ([]string, error)
}

type server struct {
	activeJobs     	map[string]*jobInfo
	jobsMutex      	*sync.RWMutex
	crawlMutex 		*sync.Mutex
	jobs 			*sync.WaitGroup
	jobsCtx 		context.Context
	cancelJobs 		context.CancelFunc
	log         	*logger.Logger
	metrics 		*metrics.Metrics
	searcher 		*searcher.Searcher
	newCrawler 		func() crawler
	cfg 			*configs.Config
	urlValidator 	*validation.URLValidator
	queryValidator 	*validation.QueryValidator
}

const (
	statusQueued 	= "queued"
	statusRunning 	= "running"
	statusCompleted = "completed"
	statusFailed 	= "failed"
)

type jobInfo struct {
	id            	string
	baseURL 		string
	threshold 		int
	status        	string
	indexed 		[]string
	err 			error
	started 		time.Time
	finished 		time.Time
}

func NewServer(cfg *configs.Config, repo *repository.IndexRepository, l *logger.Logger, m *metrics.Metrics) *server {
	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	return &server{
		activeJobs:     make(map[string]*jobInfo),
		jobsMutex: 		new(sync.RWMutex),
		crawlMutex: 	new(sync.Mutex),
		jobs: 			new(sync.WaitGroup),
		jobsCtx: 		jobsCtx,
		cancelJobs: 	cancelJobs,
		log:         	l,
		metrics: 		m,
		searcher: 		searcher.NewSearcher(repo, cfg.Search.TitleBoost, cfg.Crawler.Workers, l, m),
		newCrawler: func() crawler {
			return scraper.NewScraper(repo, &scraper.ConfigData{
				Workers: 		cfg.Crawler.Workers,
				Rate: 			cfg.Crawler.Rate,
				FetchTimeout: 	cfg.Crawler.FetchTimeout,
				RespectRobots: 	cfg.Crawler.RespectRobots,
				UserAgent: 		cfg.Crawler.UserAgent,
			}, l, m)
		},
		cfg: 			cfg,
		urlValidator: 	validation.NewURLValidator(),
		queryValidator: validation.NewQueryValidator(),
	}
}

type CrawlRequest struct {
	BaseURL   string `json:"base_url"`
	Threshold int    `json:"threshold"`
}

type CrawlResponse struct {
	JobId  string `json:"job_id"`
	Status string `json:"status"`
}

type StatusResponse struct {
	JobId        string    `json:"job_id"`
	BaseURL      string    `json:"base_url"`
	Status       string    `json:"status"`
	PagesIndexed int       `json:"pages_indexed"`
	URLs         []string  `json:"urls"`
	Error        string    `json:"error,omitempty"`
	Started      time.Time `json:"started"`
	Finished     time.Time `json:"finished,omitzero"`
}

type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type SearchResponse struct {
	Query   string           `json:"query"`
	Results []*searcher.Hit  `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *server) startCrawlHandler(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.urlValidator.ValidateURL(req.BaseURL); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Threshold <= 0 {
		req.Threshold = s.cfg.Crawler.Threshold
	}

	job := &jobInfo{
		id:            	uuid.New().String(),
		baseURL: 		req.BaseURL,
		threshold: 		req.Threshold,
		status:        	statusQueued,
		started: 		time.Now(),
	}
	s.jobsMutex.Lock()
	s.activeJobs[job.id] = job
	s.jobsMutex.Unlock()

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.runJob(job)
	}()
	writeJSON(w, http.StatusAccepted, CrawlResponse{JobId: job.id, Status: statusQueued})
}

// runJob waits for earlier crawls to finish so only one crawl writes to the
// index at a time.
func (s *server) runJob(job *jobInfo) {
	s.crawlMutex.Lock()
	defer s.crawlMutex.Unlock()

	s.jobsMutex.Lock()
	job.status = statusRunning
	s.jobsMutex.Unlock()
	s.log.Write(logger.NewMessage(logger.SERVER_LAYER, logger.INFO, "crawl job %s started from %s", job.id, job.baseURL))

	indexed, err := s.newCrawler().Discover(s.jobsCtx, job.baseURL, job.threshold)

	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	job.indexed = indexed
	job.finished = time.Now()
	if err != nil {
		job.status = statusFailed
		job.err = err
		s.log.Write(logger.NewMessage(logger.SERVER_LAYER, logger.ERROR, "crawl job %s failed: %v", job.id, err))
		return
	}
	job.status = statusCompleted
	s.log.Write(logger.NewMessage(logger.SERVER_LAYER, logger.INFO, "crawl job %s indexed %d pages", job.id, len(indexed)))
}

func (s *server) getCrawlStatusHandler(w http.ResponseWriter, r *http.Request) {
	jobId := r.URL.Query().Get("job_id")
	if jobId == "" {
		writeError(w, http.StatusBadRequest, errors.New("empty param job_id"))
		return
	}
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	job, exists := s.activeJobs[jobId]
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("job %s: %w", jobId, model.ErrNotFound))
		return
	}
	response := StatusResponse{
		JobId: 			job.id,
		BaseURL: 		job.baseURL,
		Status:       	job.status,
		PagesIndexed: 	len(job.indexed),
		URLs: 			append([]string{}, job.indexed...),
		Started: 		job.started,
		Finished: 		job.finished,
	}
	if job.err != nil {
		response.Error = job.err.Error()
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.queryValidator.ValidateQuery(req.Query); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hits, err := s.search(req.Query, req.MaxResults)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: req.Query, Results: hits})
}

func (s *server) search(query string, limit int) ([]*searcher.Hit, error) {
	if limit <= 0 {
		limit = s.cfg.Search.DefaultLimit
	}
	return s.searcher.Query(query, limit)
}

func (s *server) documentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid document id %q", r.PathValue("id")))
		return
	}
	hit, err := s.searcher.Document(uint32(id))
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, hit)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.ObserveRequest(pattern, strconv.Itoa(rec.status))
	})
}

func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.indexPageHandler)
	mux.HandleFunc("POST /crawl/start", s.startCrawlHandler)
	mux.HandleFunc("GET /crawl/status", s.getCrawlStatusHandler)
	mux.HandleFunc("POST /search", s.searchHandler)
	mux.HandleFunc("GET /documents/{id}", s.documentHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return s.instrument(mux)
}

// stopJobs cancels running and queued crawls and waits until every job
// goroutine has returned, so the index and the logger can be closed after it.
func (s *server) stopJobs() {
	s.cancelJobs()
	s.jobs.Wait()
}

// Start serves the API until ctx is cancelled, then shuts down gracefully.
// Crawl jobs are stopped before Start returns.
func (s *server) Start(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr: 			fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: 		s.Handler(),
		ReadTimeout: 	s.cfg.Server.ReadTimeout,
		WriteTimeout: 	s.cfg.Server.WriteTimeout,
	}
	errChan := make(chan error, 1)
	go func() {
		s.log.Write(logger.NewMessage(logger.SERVER_LAYER, logger.INFO, "REST API started at %d", s.cfg.Server.Port))
		errChan <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		s.stopJobs()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		s.stopJobs()
		s.log.Write(logger.NewMessage(logger.SERVER_LAYER, logger.INFO, "REST API stopped, crawl jobs finished"))
		return err
	}
}
