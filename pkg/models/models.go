package models

import "time"

// CategoryTask is one category URL handed to a worker
type CategoryTask struct {
	URL         string
	WorkerIndex int
}

// ProductRecord is one scraped product. ProductID and Image are null in the
// report when the URL carried no identifier or no image was saved.
type ProductRecord struct {
	ProductID *string `json:"product_id"`
	Name      string  `json:"name"`
	Price     string  `json:"price"`
	URL       string  `json:"url"`
	Image     *string `json:"image"`
}

// CategoryStatus distinguishes an empty category from one that never loaded
type CategoryStatus string

const (
	StatusCompleted      CategoryStatus = "completed"
	StatusCompletedEmpty CategoryStatus = "completed_empty"
	StatusAborted        CategoryStatus = "aborted"
)

// CategoryResult is what a worker returns for one category
type CategoryResult struct {
	Key         string
	Records     []ProductRecord
	Failed      int
	Duplicates  int
	Status      CategoryStatus
	WorkerIndex int
	Duration    time.Duration
}

// RunMetadata summarizes a whole run
type RunMetadata struct {
	RunID             string   `json:"run_id"`
	Datetime          string   `json:"datetime"`
	ScraperVersion    string   `json:"scraper_version"`
	DurationSeconds   float64  `json:"duration_seconds"`
	TotalProducts     int      `json:"total_products"`
	TotalFailed       int      `json:"total_failed"`
	TotalDuplicates   int      `json:"total_duplicates"`
	CategoriesScraped int      `json:"categories_scraped"`
	Categories        []string `json:"categories"`
	CategoriesAborted []string `json:"categories_aborted"`
}

// Report is the document written to disk
type Report struct {
	Metadata RunMetadata                `json:"metadata"`
	Products map[string][]ProductRecord `json:"products"`
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
