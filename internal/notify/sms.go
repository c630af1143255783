package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spp-monitor/internal/config"
	"github.com/sells-group/spp-monitor/internal/model"
)

// SMSNotifier sends alerts through the Twilio Messages API, one message per
// recipient. The REST client is constructed on first use so that missing
// Twilio configuration fails this channel only and never blocks email.
type SMSNotifier struct {
	cfg        config.TwilioConfig
	recipients []string
	portalURL  string
	client     *resty.Client
}

// NewSMS creates an SMS notifier.
func NewSMS(cfg config.TwilioConfig, recipients []string, portalURL string) *SMSNotifier {
	return &SMSNotifier{cfg: cfg, recipients: recipients, portalURL: portalURL}
}

func (n *SMSNotifier) Name() string { return "sms" }

func (n *SMSNotifier) restClient() (*resty.Client, error) {
	if n.client != nil {
		return n.client, nil
	}
	if n.cfg.AccountSID == "" || n.cfg.AuthToken == "" {
		return nil, eris.New("notify: twilio credentials not configured")
	}
	n.client = resty.New().
		SetBaseURL(n.cfg.BaseURL).
		SetBasicAuth(n.cfg.AccountSID, n.cfg.AuthToken).
		SetTimeout(15 * time.Second)
	return n.client, nil
}

// Send delivers the alert to every configured number. Per-recipient
// failures are logged and collected; any failure makes the whole channel
// report an error, but delivery to the other recipients still proceeds.
func (n *SMSNotifier) Send(ctx context.Context, studies []model.Study) error {
	if len(studies) == 0 {
		return nil
	}
	if len(n.recipients) == 0 {
		return eris.New("notify: no sms recipients configured")
	}

	client, err := n.restClient()
	if err != nil {
		return err
	}

	body := smsBody(studies, n.portalURL)
	endpoint := fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", n.cfg.AccountSID)

	failed := 0
	for _, to := range n.recipients {
		resp, err := client.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"To":   to,
				"From": n.cfg.FromNumber,
				"Body": body,
			}).
			Post(endpoint)
		if err != nil {
			zap.L().Warn("notify: sms request failed",
				zap.String("to", to),
				zap.Error(err),
			)
			failed++
			continue
		}
		if resp.IsError() {
			zap.L().Warn("notify: sms rejected",
				zap.String("to", to),
				zap.Int("status", resp.StatusCode()),
			)
			failed++
			continue
		}
		zap.L().Info("notify: sms sent", zap.String("to", to))
	}

	if failed > 0 {
		return eris.Errorf("notify: sms delivery failed for %d of %d recipient(s)", failed, len(n.recipients))
	}
	return nil
}
