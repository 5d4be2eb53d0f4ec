package scraper

import (
	"context"
	"io"

	"shopscraper/pkg/models"
)

// ImageFetcher downloads image bytes
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ImageStore persists images and debug captures
type ImageStore interface {
	SaveImage(r io.Reader, categoryKey, name string) (string, error)
	SaveScreenshot(data []byte, workerIndex int, categoryKey string) (string, error)
}

// TaskRunner scrapes one category
type TaskRunner interface {
	Run(ctx context.Context, task models.CategoryTask) (models.CategoryResult, error)
}

// Observer is told about run progress. Calls come from the orchestrator
// goroutine only.
type Observer interface {
	RunStarted(categories, workers int)
	CategoryFinished(result models.CategoryResult, err error)
}
