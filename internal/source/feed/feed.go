// Package feed harvests items from a rendered activity feed using a headless
// browser. The feed only exists after JavaScript runs, so a plain HTTP fetch
// sees nothing.
package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/talentwire/leadharvest/internal/harvest"
)

// Config controls the headless capture.
type Config struct {
	// SearchURL is the feed search results page to harvest.
	SearchURL string
	// Keyword is recorded on every captured item.
	Keyword string
	UserAgent string
	// NavigationTimeout bounds the whole capture including scrolling.
	NavigationTimeout time.Duration
	// ScrollPasses is how many times the page is scrolled to the bottom to
	// coax the feed into loading more items.
	ScrollPasses int
	// ScrollDelay is the pause after each scroll pass.
	ScrollDelay time.Duration
	// MaxItems caps the number of items returned per capture.
	MaxItems int
}

// Source captures the feed once per run. Next returns the whole capture as a
// single batch and reports exhaustion afterwards.
type Source struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger

	mu   sync.Mutex
	done bool
}

// New creates a feed source backed by a headless Chrome allocator.
func New(cfg Config, logger *zap.Logger) (*Source, error) {
	if cfg.SearchURL == "" {
		return nil, fmt.Errorf("feed: search URL is required")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.ScrollPasses <= 0 {
		cfg.ScrollPasses = 4
	}
	if cfg.ScrollDelay <= 0 {
		cfg.ScrollDelay = 1500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Source{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context.
func (s *Source) Close() {
	s.allocCancel()
}

// capturedItem is the shape produced by the in-page extraction script.
type capturedItem struct {
	Text       []string          `json:"text"`
	Author     string            `json:"author"`
	Profile    string            `json:"profile"`
	Attributes map[string]string `json:"attributes"`
	Links      []capturedLink    `json:"links"`
	HTML       string            `json:"html"`
}

type capturedLink struct {
	Href      string              `json:"href"`
	Text      string              `json:"text"`
	Ancestors []map[string]string `json:"ancestors"`
}

// extractScript walks the rendered feed and serializes each update into the
// capture shape. It runs inside the page, so it must stay self-contained.
const extractScript = `
(() => {
  const keep = ['data-urn', 'data-activity-urn', 'data-id', 'componentkey', 'data-control-name', 'id'];
  const attrsOf = (el) => {
    const out = {};
    for (const name of keep) {
      const v = el.getAttribute && el.getAttribute(name);
      if (v) out[name] = v;
    }
    return out;
  };
  const items = [];
  const nodes = document.querySelectorAll('div.feed-shared-update-v2, article, div[data-urn]');
  for (const node of nodes) {
    const text = (node.innerText || '').split('\n').map(l => l.trim()).filter(Boolean);
    const authorEl = node.querySelector('.update-components-actor__title, .feed-shared-actor__name');
    const profileEl = node.querySelector('a[href*="/in/"]');
    const links = [];
    for (const a of node.querySelectorAll('a[href]')) {
      const ancestors = [];
      let p = a.parentElement;
      while (p && p !== node && ancestors.length < 6) {
        ancestors.push(attrsOf(p));
        p = p.parentElement;
      }
      links.push({ href: a.href, text: (a.innerText || '').trim(), ancestors });
    }
    items.push({
      text,
      author: authorEl ? authorEl.innerText.trim().split('\n')[0] : '',
      profile: profileEl ? profileEl.href : '',
      attributes: attrsOf(node),
      links,
      html: node.outerHTML,
    });
  }
  return items;
})()`

// Next performs the capture on first call and returns its items, minus any
// the caller already processed. Subsequent calls report exhaustion.
func (s *Source) Next(ctx context.Context, exclude map[string]struct{}) ([]harvest.RawItem, error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil, nil
	}
	s.done = true
	s.mu.Unlock()

	captured, err := s.capture(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]harvest.RawItem, 0, len(captured))
	for _, c := range captured {
		item := toRawItem(c, s.cfg.Keyword)
		if excluded(item, exclude) {
			continue
		}
		items = append(items, item)
		if s.cfg.MaxItems > 0 && len(items) >= s.cfg.MaxItems {
			break
		}
	}
	s.logger.Info("feed captured",
		zap.Int("raw", len(captured)),
		zap.Int("kept", len(items)),
	)
	return items, nil
}

func (s *Source) capture(ctx context.Context) ([]capturedItem, error) {
	taskCtx, taskCancel := chromedp.NewContext(s.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, s.cfg.NavigationTimeout)
	defer cancel()

	// Tie the capture to the caller's context as well.
	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	actions := []chromedp.Action{
		s.networkSetupAction(),
		chromedp.Navigate(s.cfg.SearchURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
	}
	for i := 0; i < s.cfg.ScrollPasses; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(s.cfg.ScrollDelay),
		)
	}

	var captured []capturedItem
	actions = append(actions, chromedp.Evaluate(extractScript, &captured))

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("feed capture: %w", err)
	}
	return captured, nil
}

func (s *Source) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func toRawItem(c capturedItem, keyword string) harvest.RawItem {
	links := make([]harvest.ItemLink, 0, len(c.Links))
	for _, l := range c.Links {
		ancestors := make([]harvest.ItemNode, 0, len(l.Ancestors))
		for _, a := range l.Ancestors {
			ancestors = append(ancestors, harvest.ItemNode{Attributes: a})
		}
		links = append(links, harvest.ItemLink{Href: l.Href, Text: l.Text, Ancestors: ancestors})
	}
	return harvest.RawItem{
		TextLines:     c.Text,
		AuthorName:    strings.TrimSpace(c.Author),
		ProfileRef:    c.Profile,
		SearchKeyword: keyword,
		Attributes:    c.Attributes,
		Links:         links,
		Serialized:    c.HTML,
	}
}

// excluded reports whether any of the item's identifying attributes is in the
// caller's processed set. Exhaustive matching is the resolver's job; this is
// only a cheap pre-filter.
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
