// Package crawler mirrors a website breadth-first.
//
// # Components
//
//   - Rewrite: turns same-host links of an HTML document into host-relative
//     links and collects every link it sees
//   - Archiver: runs the per-URL pipeline (robots.txt check, fetch, rewrite,
//     store) and reports the outcome
//   - Spider: the scheduler that drains one depth level at a time, expands the
//     links found on that level and stops at the depth limit or page cap
//
// # Usage
//
//	archiver := crawler.NewArchiver(client, robots.NewCache(client), store.NewFS("."))
//	spider := crawler.NewSpider(archiver, crawler.WithMaxDepth(2))
//	report, err := spider.Crawl(ctx, "http://example.com/")
//
// # Scope
//
// Only URLs on the root's origin (scheme, host and port) are followed.
// Links are canonicalized before deduplication, so query strings and
// fragments never create new pages.
package crawler
