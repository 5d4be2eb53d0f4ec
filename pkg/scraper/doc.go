// Package scraper scrapes product categories concurrently.
//
// A CategoryWorker owns one browser session for one category URL. It loads
// the listing grid, scrolls until the page stops growing, then visits every
// product link in order. Links whose product id was already seen in the
// category are skipped without being visited. A failing product is counted
// and skipped; only a failure to start the session or load the grid aborts
// the category.
//
// The Orchestrator runs workers on a bounded pool and folds their results
// into an Aggregate, a mutex guarded map written once per category at task
// completion. Aborted categories are reported in the run metadata and left
// out of the product map.
//
// Usage:
//
//	worker := scraper.NewCategoryWorker(provider, fetcher, store, scraper.WorkerConfigFrom(cfg), log)
//	orch := scraper.NewOrchestrator(worker, scraper.Options{WorkerLimit: 3, LocalePrefix: "/ca/en/"}, log)
//	report, err := orch.Run(ctx, cfg.Scrape.URLs)
package scraper
