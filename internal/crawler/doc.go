// Package crawler discovers HTML documents on the web.
//
// # Architecture
//
// The Crawler type coordinates one crawl run. Each frontier entry goes
// through the same steps and ends in exactly one model.State:
//
//	pop -> depth check -> politeness wait -> robots check -> fetch -> extract -> enqueue links
//
// # Components
//
//   - Frontier: FIFO of pending entries with a visited set and a depth bound
//   - RobotsCache: per-origin robots.txt policy, fetched once per run
//   - Politeness: per-origin request spacing
//   - Fetcher: HTTP GET with timeout, body cap and per-site headers
//   - Extractor: visible text, images, videos and links from HTML
//
// # Concurrency
//
// Entries are processed by a bounded worker pool. With one worker (the
// default) the crawl is strictly breadth-first and sequential. With more
// workers the page limit is still an exact upper bound because the
// dispatcher never starts more entries than the remaining page budget.
//
// # Usage
//
//	c := crawler.New(seeds, crawler.WithMaxDepth(1), crawler.WithPageLimit(50))
//	result, err := c.Run(ctx)
package crawler
