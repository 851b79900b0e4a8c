// Package static harvests items from server-rendered pages over plain HTTP
// using Colly. It covers job boards and mirrors that do not need a browser.
package static

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/talentwire/leadharvest/internal/harvest"
)

// identifying attributes copied off each post element.
var keepAttrs = []string{"data-urn", "data-activity-urn", "data-id", "componentkey", "data-control-name", "id"}

// Config controls the static source.
type Config struct {
	// SeedURLs are the pages to visit.
	SeedURLs []string
	// Keyword is recorded on every captured item.
	Keyword string
	// Selector picks post elements out of each page.
	Selector  string
	UserAgent string
	Timeout   time.Duration
	// MaxItems caps the number of items returned per run.
	MaxItems int
}

// Source visits the seed URLs once per run and returns everything it found
// as a single batch.
type Source struct {
	cfg    Config
	logger *zap.Logger

	mu   sync.Mutex
	done bool
}

// New creates a static source.
func New(cfg Config, logger *zap.Logger) (*Source, error) {
	if len(cfg.SeedURLs) == 0 {
		return nil, fmt.Errorf("static: at least one seed URL is required")
	}
	if cfg.Selector == "" {
		cfg.Selector = "article, div.post, div[data-urn]"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{cfg: cfg, logger: logger}, nil
}

// Next scrapes the seed URLs on first call. Subsequent calls report
// exhaustion. Per-page fetch failures are logged and skipped; the run only
// fails when every page failed.
func (s *Source) Next(ctx context.Context, exclude map[string]struct{}) ([]harvest.RawItem, error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil, nil
	}
	s.done = true
	s.mu.Unlock()

	collector := colly.NewCollector(colly.Async(false))
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	collector.SetRequestTimeout(s.cfg.Timeout)

	var (
		itemsMu sync.Mutex
		items   []harvest.RawItem
	)
	collector.OnHTML(s.cfg.Selector, func(e *colly.HTMLElement) {
		item := s.toRawItem(e)
		if excluded(item, exclude) {
			return
		}
		itemsMu.Lock()
		defer itemsMu.Unlock()
		if s.cfg.MaxItems > 0 && len(items) >= s.cfg.MaxItems {
			return
		}
		items = append(items, item)
	})

	failures := 0
	for _, url := range s.cfg.SeedURLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := collector.Visit(url); err != nil {
			failures++
			s.logger.Warn("seed page fetch failed", zap.String("url", url), zap.Error(err))
		}
	}
	collector.Wait()

	if failures == len(s.cfg.SeedURLs) {
		return nil, fmt.Errorf("static: all %d seed pages failed", failures)
	}
	s.logger.Info("static pages scraped",
		zap.Int("pages", len(s.cfg.SeedURLs)),
		zap.Int("failures", failures),
		zap.Int("items", len(items)),
	)
	return items, nil
}

func (s *Source) toRawItem(e *colly.HTMLElement) harvest.RawItem {
	attrs := make(map[string]string)
	for _, name := range keepAttrs {
		if v := e.Attr(name); v != "" {
			attrs[name] = v
		}
	}

	var lines []string
	for _, line := range strings.Split(e.Text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	var links []harvest.ItemLink
	e.ForEach("a[href]", func(_ int, a *colly.HTMLElement) {
		link := harvest.ItemLink{
			Href: a.Request.AbsoluteURL(a.Attr("href")),
			Text: strings.TrimSpace(a.Text),
		}
		for p := a.DOM.Parent(); p.Length() > 0 && len(link.Ancestors) < 6; p = p.Parent() {
			node := harvest.ItemNode{Attributes: make(map[string]string)}
			for _, name := range keepAttrs {
				if v, ok := p.Attr(name); ok && v != "" {
					node.Attributes[name] = v
				}
			}
			link.Ancestors = append(link.Ancestors, node)
		}
		links = append(links, link)
	})

	serialized, err := goquery.OuterHtml(e.DOM)
	if err != nil {
		serialized = e.Text
	}

	author := strings.TrimSpace(e.ChildText(".author, .post-author"))
	profile := e.ChildAttr(`a[href*="/in/"]`, "href")

	return harvest.RawItem{
		TextLines:     lines,
		AuthorName:    author,
		ProfileRef:    profile,
		SearchKeyword: s.cfg.Keyword,
		Attributes:    attrs,
		Links:         links,
		Serialized:    serialized,
	}
}

func excluded(item harvest.RawItem, exclude map[string]struct{}) bool {
	if len(exclude) == 0 {
		return false
	}
	for _, v := range item.Attributes {
		if _, ok := exclude[v]; ok {
			return true
		}
	}
	return false
}
