package portal

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/spp-monitor/internal/model"
)

// Strategy extracts studies from one parsed listing page. Strategies are
// applied in order; the first to yield any studies wins. The portal's
// markup is not a contract, so a structural tier is backed by a looser
// link-heuristic tier.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, pageURL string, categoryID int, label string) []model.Study
}

// Extractor turns listing pages into study records.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an Extractor resolving relative links against the
// portal's base origin.
func NewExtractor(base *url.URL) *Extractor {
	return &Extractor{
		strategies: []Strategy{
			&tableStrategy{base: base},
			&linkStrategy{base: base},
		},
	}
}

// Extract parses one listing page. pageURL is assigned to studies whose row
// carries no link of its own. A page matching no tier yields zero studies,
// never an error.
func (e *Extractor) Extract(page string, pageURL string, categoryID int, label string) []model.Study {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		zap.L().Warn("portal: parse listing page",
			zap.Int("category_id", categoryID),
			zap.Error(err),
		)
		return nil
	}

	for _, s := range e.strategies {
		studies := s.Extract(doc, pageURL, categoryID, label)
		if len(studies) > 0 {
			zap.L().Debug("portal: extraction strategy matched",
				zap.String("strategy", s.Name()),
				zap.Int("category_id", categoryID),
				zap.Int("studies", len(studies)),
			)
			return studies
		}
	}
	return nil
}

// tableStrategy reads every table on the page. A row containing th cells
// sets the column names for the rows after it; each data row becomes one
// study with a details map of column -> cell text, plus a {column}_url
// entry for any linked cell.
type tableStrategy struct {
	base *url.URL
}

func (t *tableStrategy) Name() string { return "table" }

func (t *tableStrategy) Extract(doc *goquery.Document, pageURL string, categoryID int, label string) []model.Study {
	var studies []model.Study

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var headers []string
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("th, td")
			if row.Find("th").Length() > 0 {
				headers = headers[:0]
				cells.Each(func(_ int, cell *goquery.Selection) {
					headers = append(headers, cellText(cell))
				})
				return
			}
			if cells.Length() == 0 {
				return
			}

			details := make(map[string]string, cells.Length())
			cells.Each(func(i int, cell *goquery.Selection) {
				key := fmt.Sprintf("col_%d", i)
				if i < len(headers) {
					key = headers[i]
				}
				details[key] = cellText(cell)
				if href, ok := cell.Find("a[href]").First().Attr("href"); ok {
					details[key+"_url"] = resolveURL(t.base, href)
				}
			})

			// The first cell names the study; its link, when present, is
			// the study URL, otherwise the listing page itself stands in.
			first := cells.First()
			name := cellText(first)
			studyURL := pageURL
			if link := first.Find("a[href]").First(); link.Length() > 0 {
				name = strings.TrimSpace(link.Text())
				if href, ok := link.Attr("href"); ok {
					studyURL = resolveURL(t.base, href)
				}
			}
			if name == "" {
				return
			}

			studies = append(studies, model.Study{
				Name:          name,
				URL:           studyURL,
				CategoryID:    categoryID,
				CategoryLabel: label,
				Details:       details,
			})
		})
	})

	return studies
}

// linkStrategy is the fallback when no table produced rows: any anchor that
// looks like a study document becomes a bare study record.
type linkStrategy struct {
	base *url.URL
}

var studyKeywords = []string{"study", "gen-", "disis"}

var documentExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx"}

func (l *linkStrategy) Name() string { return "link" }

func (l *linkStrategy) Extract(doc *goquery.Document, _ string, categoryID int, label string) []model.Study {
	var studies []model.Study

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())
		if text == "" || !looksLikeStudy(text, href) {
			return
		}
		studies = append(studies, model.Study{
			Name:          text,
			URL:           resolveURL(l.base, href),
			CategoryID:    categoryID,
			CategoryLabel: label,
		})
	})

	return studies
}

func looksLikeStudy(text, href string) bool {
	lowerText := strings.ToLower(text)
	for _, kw := range studyKeywords {
		if strings.Contains(lowerText, kw) {
			return true
		}
	}

	path := href
	if u, err := url.Parse(href); err == nil {
		path = u.Path
	}
	lowerPath := strings.ToLower(path)
	for _, ext := range documentExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}
	return strings.Contains(lowerPath, "/documents/")
}

// cellText flattens a cell to trimmed single-spaced text.
func cellText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
