package ui

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"shopscraper/pkg/config"
	"shopscraper/pkg/models"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })
	return &buf
}

type recordingSender struct {
	titles   []string
	messages []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

func TestPrintHelpers(t *testing.T) {
	buf := captureOutput(t)

	PrintError("write failed", "disk full")
	PrintWarning("slow page")
	PrintInfo("Workers", "3")
	PrintSuccess("done")

	out := buf.String()
	assert.Contains(t, out, "write failed: disk full")
	assert.Contains(t, out, "slow page")
	assert.Contains(t, out, "Workers")
	assert.Contains(t, out, "done")
}

func TestPrintLogo(t *testing.T) {
	buf := captureOutput(t)

	PrintLogo()
	assert.Contains(t, buf.String(), "CATEGORY PRICE")
}

func TestProgressDisplay(t *testing.T) {
	buf := captureOutput(t)
	p := NewProgressDisplay(false)

	p.RunStarted(3, 2)
	p.CategoryFinished(models.CategoryResult{
		Key:        "men/tops",
		Records:    make([]models.ProductRecord, 4),
		Failed:     1,
		Duplicates: 2,
		Status:     models.StatusCompleted,
	}, nil)
	p.CategoryFinished(models.CategoryResult{Key: "men/socks", Status: models.StatusCompletedEmpty}, nil)
	p.CategoryFinished(models.CategoryResult{Key: "men/hats", Status: models.StatusAborted},
		stderrors.New("session error: chrome did not start"))

	finished, aborted, products := p.Counts()
	assert.Equal(t, 3, finished)
	assert.Equal(t, 1, aborted)
	assert.Equal(t, 4, products)

	out := buf.String()
	assert.Contains(t, out, "3 categories with 2 workers")
	assert.Contains(t, out, "men/tops • 4 products")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "2 duplicates")
	assert.Contains(t, out, "no products")
	assert.Contains(t, out, "chrome did not start")
	assert.Contains(t, out, "3/3")
}

func TestProgressDisplayTruncatesLongErrors(t *testing.T) {
	buf := captureOutput(t)
	p := NewProgressDisplay(false)
	p.RunStarted(1, 1)

	p.CategoryFinished(models.CategoryResult{Key: "men/tops", Status: models.StatusAborted},
		stderrors.New(strings.Repeat("x", 200)))

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), strings.Repeat("x", 100))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h2m", formatDuration(62*time.Minute))
}

func TestNotifierRespectsConfig(t *testing.T) {
	captureOutput(t)
	meta := models.RunMetadata{
		TotalProducts:     12,
		CategoriesScraped: 2,
		DurationSeconds:   3.5,
		CategoriesAborted: []string{"men/hats"},
	}

	tests := []struct {
		name      string
		cfg       config.NotificationConfig
		wantSends int
	}{
		{"disabled", config.NotificationConfig{Enabled: false, OnComplete: true, OnError: true}, 0},
		{"enabled", config.NotificationConfig{Enabled: true, OnComplete: true, OnError: true}, 2},
		{"errors only", config.NotificationConfig{Enabled: true, OnError: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			n := NewNotifierWithSender(tt.cfg, sender)

			n.RunCompleted(meta)
			n.RunFailed(stderrors.New("report not written"))

			assert.Len(t, sender.titles, tt.wantSends)
		})
	}
}

func TestNotifierMessage(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{}
	n := NewNotifierWithSender(config.NotificationConfig{Enabled: true, OnComplete: true}, sender)

	n.RunCompleted(models.RunMetadata{
		TotalProducts:     12,
		CategoriesScraped: 2,
		DurationSeconds:   3.5,
		CategoriesAborted: []string{"men/hats"},
	})

	require.Len(t, sender.messages, 1)
	assert.Equal(t, "12 products from 2 categories in 3.5s, 1 aborted", sender.messages[0])
	assert.Contains(t, buf.String(), "Scrape complete")
}

func TestXMLEscape(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt; &quot;d&quot;", xmlEscape(`a & b <c> "d"`))
}

func TestRenderSummary(t *testing.T) {
	report := &models.Report{
		Metadata: models.RunMetadata{
			RunID:             "0b7c4a3e-run",
			Datetime:          "2026-10-19T10:00:00+00:00",
			DurationSeconds:   12.34,
			TotalProducts:     3,
			TotalFailed:       1,
			TotalDuplicates:   0,
			CategoriesScraped: 2,
			Categories:        []string{"men/tops", "men/socks"},
			CategoriesAborted: []string{"men/hats"},
		},
		Products: map[string][]models.ProductRecord{
			"men/tops":  make([]models.ProductRecord, 3),
			"men/socks": {},
		},
	}

	out := RenderSummary(report, 3, "out/prices.json", "out/output.zip")

	for _, want := range []string{
		"RUN SUMMARY", "0b7c4a3e-run", "12.34s", "2 scraped, 1 aborted",
		"Images", "out/prices.json", "out/output.zip",
		"men/tops", "men/socks", "men/hats", "empty", "aborted",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "men/socks"), strings.Index(out, "men/tops"))
	assert.Less(t, strings.Index(out, "men/tops"), strings.Index(out, "men/hats"))
}

func TestRenderSummaryEmptyRun(t *testing.T) {
	report := &models.Report{Products: map[string][]models.ProductRecord{}}

	out := RenderSummary(report, -1, "", "")

	assert.Contains(t, out, "RUN SUMMARY")
	assert.NotContains(t, out, "Images")
	assert.NotContains(t, out, "category")
	assert.NotContains(t, out, "Archive")
}
