package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/spp-monitor/internal/config"
	"github.com/sells-group/spp-monitor/internal/model"
)

// EmailNotifier sends one multipart alert message per cycle, with both a
// plain-text and an HTML rendition, to the whole recipient list.
type EmailNotifier struct {
	cfg        config.SMTPConfig
	recipients []string
	portalURL  string
}

// NewEmail creates an email notifier. portalURL is the studies index link
// included in the message footer.
func NewEmail(cfg config.SMTPConfig, recipients []string, portalURL string) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, recipients: recipients, portalURL: portalURL}
}

func (n *EmailNotifier) Name() string { return "email" }

// Send delivers the alert. An empty study set is a no-op.
func (n *EmailNotifier) Send(_ context.Context, studies []model.Study) error {
	if len(studies) == 0 {
		return nil
	}
	if len(n.recipients) == 0 {
		return eris.New("notify: no email recipients configured")
	}

	msg := email.NewEmail()
	msg.From = n.cfg.FromAddress
	msg.To = n.recipients
	msg.Subject = fmt.Sprintf("[SPP Alert] %d New Impact Study Posting(s)", len(studies))
	msg.Text = []byte(textSummary(studies, n.portalURL))
	msg.HTML = []byte(htmlSummary(studies, n.portalURL))

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)

	var err error
	if n.cfg.UseTLS {
		// Submission port with STARTTLS upgrade.
		err = msg.Send(addr, auth)
	} else {
		// Implicit-TLS port.
		err = msg.SendWithTLS(addr, auth, &tls.Config{ServerName: n.cfg.Host})
	}
	if err != nil {
		return eris.Wrap(err, "notify: send email")
	}

	zap.L().Info("notify: email sent",
		zap.Int("recipients", len(n.recipients)),
		zap.Int("studies", len(studies)),
	)
	return nil
}
