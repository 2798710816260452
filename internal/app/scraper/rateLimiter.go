package scraper

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiters paces requests separately for every host of a crawl. A
// non-positive rate turns pacing off.
type hostLimiters struct {
	perSecond 	rate.Limit
	mu 			*sync.Mutex
	hosts 		map[string]*rate.Limiter
}

func newHostLimiters(perSecond int) *hostLimiters {
	return &hostLimiters{
		perSecond: 	rate.Limit(perSecond),
		mu: 		new(sync.Mutex),
		hosts: 		make(map[string]*rate.Limiter),
	}
}

// wait blocks until host may be requested again or ctx is done.
func (hl *hostLimiters) wait(ctx context.Context, host string) error {
	if hl.perSecond <= 0 {
		return nil
	}
	hl.mu.Lock()
	lim, ok := hl.hosts[host]
	if !ok {
		lim = rate.NewLimiter(hl.perSecond, 1)
		hl.hosts[host] = lim
	}
	hl.mu.Unlock()
	return lim.Wait(ctx)
}

func (hl *hostLimiters) reset() {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	clear(hl.hosts)
}
