// Package page implements the bounded-wait interactions a category worker
// performs against a live listing page.
package page

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"shopscraper/pkg/browser"
	"shopscraper/pkg/errors"
	"shopscraper/pkg/logger"
)

// DismissConsentBanner clicks the consent rejection control if it shows up
// within timeout and waits for it to disappear. It never fails the caller;
// the result only reports whether the banner was dismissed.
func DismissConsentBanner(ctx context.Context, s browser.Session, sel string, timeout time.Duration, log logger.Logger) bool {
	if sel == "" {
		return false
	}
	log.Debug("Attempting to reject cookies")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.WaitPresent(ctx, sel)
	if err == nil {
		err = s.Click(ctx, sel)
	}
	if err == nil {
		err = s.WaitNotVisible(ctx, sel)
	}
	if err != nil {
		log.WithError(err).Info("No consent banner dismissed, continuing")
		return false
	}

	log.Info("Consent banner dismissed")
	return true
}

// ScrollStats describes one ScrollToStableEnd call
type ScrollStats struct {
	Iterations  int
	FinalHeight int
	Stable      bool
}

// ScrollToStableEnd scrolls to the bottom of the page until two consecutive
// height readings taken settle apart are equal, or maxIterations scrolls
// have been made. Hitting the cap is logged and is not an error.
func ScrollToStableEnd(ctx context.Context, s browser.Session, settle time.Duration, maxIterations int, log logger.Logger) (ScrollStats, error) {
	var stats ScrollStats

	last, err := scrollHeight(ctx, s)
	if err != nil {
		return stats, err
	}
	stats.FinalHeight = last

	for stats.Iterations < maxIterations {
		if err := s.Evaluate(ctx, browser.ScriptScrollToBottom, nil); err != nil {
			return stats, fmt.Errorf("scroll to bottom: %w", err)
		}
		if err := sleep(ctx, settle); err != nil {
			return stats, err
		}

		height, err := scrollHeight(ctx, s)
		if err != nil {
			return stats, err
		}
		stats.Iterations++
		stats.FinalHeight = height

		if height == last {
			stats.Stable = true
			log.DebugWithFields("Page height stable", map[string]interface{}{
				"iterations": stats.Iterations,
				"height":     height,
			})
			return stats, nil
		}
		last = height
	}

	log.WarnWithFields("Page height never stabilized, continuing with current content", map[string]interface{}{
		"iterations": stats.Iterations,
		"height":     stats.FinalHeight,
	})
	return stats, nil
}

func scrollHeight(ctx context.Context, s browser.Session) (int, error) {
	var height int
	if err := s.Evaluate(ctx, browser.ScriptScrollHeight, &height); err != nil {
		return 0, fmt.Errorf("read page height: %w", err)
	}
	return height, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExtractGridLinks waits up to timeout for the grid, then returns the first
// link of each direct div child in document order. Relative links are
// resolved against the current page; children without a link are skipped.
func ExtractGridLinks(ctx context.Context, s browser.Session, gridSel string, timeout time.Duration, log logger.Logger) ([]string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.WaitPresent(waitCtx, gridSel); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeGrid, "product grid did not load", err)
	}

	html, err := s.OuterHTML(waitCtx, gridSel)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeGrid, "failed to read product grid", err)
	}

	base, err := s.Location(waitCtx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeGrid, "failed to read page location", err)
	}

	return ParseGridLinks(html, base, log)
}

// ParseGridLinks extracts product links from a grid's outer HTML. Each
// skipped child is logged at debug level with its index among the div
// children, so a changed tile layout is visible.
func ParseGridLinks(html, base string, log logger.Logger) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeGrid, "failed to parse product grid", err)
	}

	baseURL, _ := url.Parse(base)
	grid := doc.Find("body").Children().First()

	var links []string
	grid.ChildrenFiltered("div").Each(func(i int, item *goquery.Selection) {
		href, ok := item.Find("a[href]").First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			log.DebugWithFields("Skipping grid item without a link", map[string]interface{}{"index": i})
			return
		}
		links = append(links, resolve(baseURL, href))
	})
	return links, nil
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
