// Package detect runs one change-detection cycle against the portal.
package detect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/spp-monitor/internal/model"
	"github.com/sells-group/spp-monitor/internal/portal"
	"github.com/sells-group/spp-monitor/internal/store"
)

// ErrNoData signals that no studies could be retrieved from any category
// this cycle: the portal is unavailable, or its markup drifted past both
// extraction tiers.
var ErrNoData = errors.New("detect: no studies retrievable this cycle")

// Detector orchestrates discovery, per-category fetches, extraction, and
// the diff against the seen store. It never commits: marking studies seen
// is the caller's explicit acknowledgment after notification, which is what
// makes dry runs free.
type Detector struct {
	client      *portal.Client
	extractor   *portal.Extractor
	store       store.Store
	categoryIDs []int
	limiter     *rate.Limiter
}

// Result is the outcome of one cycle.
type Result struct {
	// Studies is everything fetched this cycle, across all categories.
	Studies []model.Study
	// New is the subset whose identity is absent from the store.
	New []model.Study
}

// New creates a Detector. categoryIDs may be empty to monitor every
// discovered category; delay throttles consecutive category fetches.
func New(client *portal.Client, extractor *portal.Extractor, st store.Store, categoryIDs []int, delay time.Duration) *Detector {
	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Detector{
		client:      client,
		extractor:   extractor,
		store:       st,
		categoryIDs: categoryIDs,
		limiter:     limiter,
	}
}

// Check runs one full cycle and returns the fetched and new study sets.
// Per-category fetch failures degrade to "no data for that category"; only
// a cycle that yields nothing at all reports ErrNoData.
func (d *Detector) Check(ctx context.Context) (*Result, error) {
	categories := d.categories(ctx)
	if len(categories) == 0 {
		zap.L().Warn("detect: no categories to monitor")
		return nil, ErrNoData
	}

	ids := make([]int, 0, len(categories))
	for id := range categories {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var all []model.Study
	for _, id := range ids {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "detect: throttle wait")
			}
		}

		listURL := d.client.ListURL(id)
		zap.L().Info("detect: fetching category",
			zap.Int("category_id", id),
			zap.String("label", categories[id]),
		)
		page, err := d.client.Fetch(ctx, listURL)
		if err != nil {
			zap.L().Warn("detect: category fetch failed",
				zap.Int("category_id", id),
				zap.Error(err),
			)
			continue
		}

		studies := d.extractor.Extract(page, listURL, id, categories[id])
		zap.L().Info("detect: extracted studies",
			zap.Int("category_id", id),
			zap.Int("count", len(studies)),
		)
		all = append(all, studies...)
	}

	if len(all) == 0 {
		return nil, ErrNoData
	}

	fresh, err := d.store.FindNew(ctx, all)
	if err != nil {
		return nil, eris.Wrap(err, "detect: diff against store")
	}

	return &Result{Studies: all, New: fresh}, nil
}

// categories resolves which categories to check. Explicitly configured ids
// still attempt discovery so display labels resolve, but a failed discovery
// is non-fatal there: unresolved ids get a synthesized label.
func (d *Detector) categories(ctx context.Context) map[int]string {
	discovered := d.client.DiscoverCategories(ctx)
	if len(d.categoryIDs) == 0 {
		return discovered
	}

	categories := make(map[int]string, len(d.categoryIDs))
	for _, id := range d.categoryIDs {
		label, ok := discovered[id]
		if !ok {
			label = fmt.Sprintf("YearType %d", id)
		}
		categories[id] = label
	}
	return categories
}
