package scraper

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsCache keeps the parsed robots.txt of every host seen during a crawl.
// A host whose robots.txt cannot be fetched is treated as allowing everything.
type robotsCache struct {
	client 		*http.Client
	userAgent 	string
	mu 			*sync.Mutex
	hosts 		map[string]*robotstxt.Group
}

func newRobotsCache(client *http.Client, userAgent string) *robotsCache {
	return &robotsCache{
		client: 	client,
		userAgent: 	userAgent,
		mu: 		new(sync.Mutex),
		hosts: 		make(map[string]*robotstxt.Group),
	}
}

func (rc *robotsCache) allowed(ctx context.Context, u *url.URL) bool {
	group := rc.groupFor(ctx, u)
	if group == nil {
		return true
	}
	return group.Test(u.EscapedPath())
}

func (rc *robotsCache) groupFor(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host
	rc.mu.Lock()
	group, ok := rc.hosts[key]
	rc.mu.Unlock()
	if ok {
		return group
	}

	group = rc.load(ctx, key)
	rc.mu.Lock()
	rc.hosts[key] = group
	rc.mu.Unlock()
	return group
}

func (rc *robotsCache) load(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", rc.userAgent)
	resp, err := rc.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data.FindGroup(rc.userAgent)
}
