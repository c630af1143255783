// Package notify delivers alerts about newly detected studies.
package notify

import (
	"context"

	"github.com/sells-group/spp-monitor/internal/model"
)

// Notifier delivers one alert cycle over a single channel. Channel failures
// are independent: the caller tries every configured channel and records
// which ones failed.
type Notifier interface {
	Name() string
	Send(ctx context.Context, studies []model.Study) error
}
