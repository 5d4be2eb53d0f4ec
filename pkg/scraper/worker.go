package scraper

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"shopscraper/pkg/browser"
	"shopscraper/pkg/catalog"
	"shopscraper/pkg/config"
	"shopscraper/pkg/errors"
	"shopscraper/pkg/logger"
	"shopscraper/pkg/models"
	"shopscraper/pkg/page"
)

// WorkerConfig holds the settings a CategoryWorker needs
type WorkerConfig struct {
	LocalePrefix        string
	Selectors           config.SelectorConfig
	WaitTimeout         time.Duration
	SettleDelay         time.Duration
	MaxScrollIterations int
	SaveImages          bool
	Debug               bool
}

// WorkerConfigFrom extracts worker settings from the application config
func WorkerConfigFrom(cfg *config.Config) WorkerConfig {
	return WorkerConfig{
		LocalePrefix:        cfg.Scrape.LocalePrefix,
		Selectors:           cfg.Selectors,
		WaitTimeout:         cfg.Scrape.WaitTimeout(),
		SettleDelay:         cfg.Scrape.SettleDelay,
		MaxScrollIterations: cfg.Scrape.MaxScrollIterations,
		SaveImages:          cfg.Scrape.SaveImages,
		Debug:               cfg.Debug,
	}
}

// CategoryWorker scrapes one category per Run call. It is safe for
// concurrent use; every Run acquires its own session.
type CategoryWorker struct {
	provider browser.Provider
	fetcher  ImageFetcher
	store    ImageStore
	cfg      WorkerConfig
	logger   logger.Logger
}

// NewCategoryWorker creates a worker. fetcher and store may be nil when
// images are not saved.
func NewCategoryWorker(provider browser.Provider, fetcher ImageFetcher, store ImageStore, cfg WorkerConfig, log logger.Logger) *CategoryWorker {
	if log == nil {
		log = logger.GetLogger()
	}
	if fetcher == nil || store == nil {
		cfg.SaveImages = false
	}
	return &CategoryWorker{
		provider: provider,
		fetcher:  fetcher,
		store:    store,
		cfg:      cfg,
		logger:   log,
	}
}

// Run scrapes task.URL. A non-nil error is always a *errors.WorkerError and
// means the category was aborted; per-product failures only show up in
// the result counts.
func (w *CategoryWorker) Run(ctx context.Context, task models.CategoryTask) (result models.CategoryResult, runErr error) {
	start := time.Now()
	result = models.CategoryResult{
		Key:         task.URL,
		WorkerIndex: task.WorkerIndex,
		Status:      models.StatusAborted,
	}

	key, err := catalog.DeriveCategoryKey(task.URL, w.cfg.LocalePrefix)
	if err != nil {
		return result, errors.NewWorkerError(task.URL, task.WorkerIndex, errors.ErrorTypeConfig, err)
	}
	result.Key = key
	log := logger.ForWorker(w.logger, task.WorkerIndex, key)

	defer func() {
		result.Duration = time.Since(start)
		logger.LogCategoryOutcome(log, string(result.Status), len(result.Records), result.Failed, result.Duplicates, result.Duration)
	}()

	log.Info("Starting category")

	session, err := w.provider.Acquire(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to start browser session")
		return result, errors.NewWorkerError(key, task.WorkerIndex, errors.ErrorTypeSession, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Debug("Browser session close reported an error")
		}
	}()

	links, err := w.loadGrid(ctx, session, task, key, log)
	if err != nil {
		log.WithError(err).Error("Failed to load category")
		w.captureDebug(session, task.WorkerIndex, key, log)
		return result, errors.NewWorkerError(key, task.WorkerIndex, errors.ErrorTypeUnknown, err)
	}

	seen := make(map[string]bool, len(links))
	records := make([]models.ProductRecord, 0, len(links))

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Category interrupted")
			result.Records = records
			return result, errors.NewWorkerError(key, task.WorkerIndex, errors.ErrorTypeSession, err)
		}

		id := catalog.ExtractProductID(link)
		if id != "" {
			if seen[id] {
				result.Duplicates++
				log.DebugWithFields("Skipping duplicate product", map[string]interface{}{"product_id": id})
				continue
			}
			seen[id] = true
		}

		record, err := w.scrapeProduct(ctx, session, key, link, id, i)
		if err != nil {
			result.Failed++
			log.WithError(err).WarnWithFields("Failed to scrape product", map[string]interface{}{"url": link})
			continue
		}

		log.DebugWithFields("Scraped product", map[string]interface{}{
			"product_id": id,
			"name":       record.Name,
			"price":      record.Price,
		})
		records = append(records, record)
	}

	result.Records = records
	result.Status = models.StatusCompleted
	if len(records) == 0 {
		result.Status = models.StatusCompletedEmpty
	}
	return result, nil
}

// loadGrid opens the category page and returns its product links
func (w *CategoryWorker) loadGrid(ctx context.Context, s browser.Session, task models.CategoryTask, key string, log logger.Logger) ([]string, error) {
	navCtx, cancel := context.WithTimeout(ctx, w.cfg.WaitTimeout)
	err := s.Navigate(navCtx, task.URL)
	cancel()
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNavigation, "failed to open category page", err)
	}

	page.DismissConsentBanner(ctx, s, w.cfg.Selectors.ConsentReject, w.cfg.WaitTimeout, log)

	waitCtx, cancel := context.WithTimeout(ctx, w.cfg.WaitTimeout)
	err = s.WaitPresent(waitCtx, w.cfg.Selectors.Grid)
	cancel()
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeGrid, "product grid did not load", err)
	}

	if w.cfg.Debug {
		if title, err := s.Title(ctx); err == nil {
			log.DebugWithFields("Category page loaded", map[string]interface{}{"title": title})
		}
	}

	stats, err := page.ScrollToStableEnd(ctx, s, w.cfg.SettleDelay, w.cfg.MaxScrollIterations, log)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeGrid, "failed to scroll category page", err)
	}

	links, err := page.ExtractGridLinks(ctx, s, w.cfg.Selectors.Grid, w.cfg.WaitTimeout, log)
	if err != nil {
		return nil, err
	}

	log.InfoWithFields("Found grid items", map[string]interface{}{
		"links":             len(links),
		"scroll_iterations": stats.Iterations,
	})
	if w.cfg.Debug {
		log.DebugWithFields("Grid links", map[string]interface{}{"urls": links})
	}
	return links, nil
}

// scrapeProduct visits one product page and optionally saves its image
func (w *CategoryWorker) scrapeProduct(ctx context.Context, s browser.Session, key, link, id string, position int) (models.ProductRecord, error) {
	itemCtx, cancel := context.WithTimeout(ctx, 2*w.cfg.WaitTimeout)
	defer cancel()

	if err := s.Navigate(itemCtx, link); err != nil {
		return models.ProductRecord{}, errors.Wrap(errors.ErrorTypeNavigation, "failed to open product page", err)
	}
	if err := s.WaitPresent(itemCtx, w.cfg.Selectors.ProductName); err != nil {
		return models.ProductRecord{}, errors.Wrap(errors.ErrorTypeElement, "product name did not appear", err)
	}

	name, err := s.Text(itemCtx, w.cfg.Selectors.ProductName)
	if err != nil {
		return models.ProductRecord{}, errors.Wrap(errors.ErrorTypeElement, "failed to read product name", err)
	}
	price, err := s.Text(itemCtx, w.cfg.Selectors.ProductPrice)
	if err != nil {
		return models.ProductRecord{}, errors.Wrap(errors.ErrorTypeElement, "failed to read product price", err)
	}
	name = strings.TrimSpace(name)

	record := models.ProductRecord{
		ProductID: models.StringPtr(id),
		Name:      name,
		Price:     strings.TrimSpace(price),
		URL:       link,
	}

	if w.cfg.SaveImages {
		rel, err := w.saveImage(itemCtx, s, key, link, catalog.ImageName(id, name, position))
		if err != nil {
			return models.ProductRecord{}, err
		}
		record.Image = &rel
	}
	return record, nil
}

func (w *CategoryWorker) saveImage(ctx context.Context, s browser.Session, key, pageURL, name string) (string, error) {
	src, ok, err := s.Attribute(ctx, w.cfg.Selectors.ProductImage, "src")
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeElement, "product image not found", err)
	}
	if !ok || strings.TrimSpace(src) == "" {
		return "", errors.New(errors.ErrorTypeElement, "product image has no src")
	}

	data, err := w.fetcher.Fetch(ctx, resolveURL(pageURL, strings.TrimSpace(src)))
	if err != nil {
		return "", err
	}

	rel, err := w.store.SaveImage(bytes.NewReader(data), key, name)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeStorage, "failed to save image", err)
	}
	return rel, nil
}

// captureDebug saves a screenshot of a category that failed to load
func (w *CategoryWorker) captureDebug(s browser.Session, workerIndex int, key string, log logger.Logger) {
	if !w.cfg.Debug || w.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WaitTimeout)
	defer cancel()

	data, err := s.Screenshot(ctx)
	if err != nil {
		log.WithError(err).Debug("Failed to capture debug screenshot")
		return
	}
	path, err := w.store.SaveScreenshot(data, workerIndex, key)
	if err != nil {
		log.WithError(err).Debug("Failed to save debug screenshot")
		return
	}
	log.DebugWithFields("Saved debug screenshot", map[string]interface{}{"path": path})
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
