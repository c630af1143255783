package portal

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DiscoverCategories fetches the studies index page and extracts the set of
// year-type categories from its GenList links. A fetch failure yields an
// empty map: no categories means nothing to check this cycle, not a fatal
// condition.
func (c *Client) DiscoverCategories(ctx context.Context) map[int]string {
	zap.L().Info("portal: discovering study categories", zap.String("url", c.IndexURL()))

	page, err := c.Fetch(ctx, c.IndexURL())
	if err != nil {
		zap.L().Warn("portal: discovery fetch failed", zap.Error(err))
		return map[int]string{}
	}

	categories := parseCategories(page)
	zap.L().Info("portal: discovered study categories", zap.Int("count", len(categories)))
	return categories
}

// parseCategories scans every anchor for a GenList link carrying a
// yearTypeId parameter. Malformed ids and empty labels are skipped
// silently; partial discovery is acceptable. A category appearing on
// multiple links keeps the last label in document order.
func parseCategories(page string) map[int]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		zap.L().Warn("portal: parse index page", zap.Error(err))
		return map[int]string{}
	}

	categories := make(map[int]string)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, "GenList") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		raw := u.Query().Get("yearTypeId")
		if raw == "" {
			return
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			return
		}
		label := strings.TrimSpace(sel.Text())
		if label == "" {
			return
		}
		categories[id] = label
	})
	return categories
}
