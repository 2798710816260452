package logo

import (
	"fmt"
	"io"
)

func PrintLogo(w io.Writer, port int) {
	fmt.Fprintf(w, `
Welcome to spyglass!
====================
        ___
     .-'   '-.
    /  .-.    \====[ ]
    |  '-'    |
    \         /
     '-.___.-'

spyglass: a small web search engine.

	- Breadth-first crawling with freshness checks and per-host rate limiting
	- Porter stemming with stop word filtering for titles and bodies
	- Vector space ranking with title boost and "quoted phrase" filters
	- Persistent index stored in BadgerDB

Endpoints on :%d
	GET  /                  search page
	POST /crawl/start       {"base_url": "...", "threshold": 30}
	GET  /crawl/status      ?job_id=...
	POST /search            {"query": "...", "max_results": 10}
	GET  /documents/{id}
	GET  /metrics

Happy exploring!
`, port)
}
