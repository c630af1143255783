package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/spp-monitor/internal/config"
	"github.com/sells-group/spp-monitor/internal/detect"
	"github.com/sells-group/spp-monitor/internal/model"
	"github.com/sells-group/spp-monitor/internal/notify"
	"github.com/sells-group/spp-monitor/internal/portal"
	"github.com/sells-group/spp-monitor/internal/store"
)

const (
	exitOK           = 0
	exitNoData       = 1
	exitNotifyFailed = 2
)

var checkDryRun bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for new studies and send alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := runCheck(cmd.Context(), cfg, checkDryRun)
		exitCode = code
		return err
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false,
		"detect new studies without notifying or marking them seen")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context, cfg *config.Config, dryRun bool) (int, error) {
	client, err := portal.NewClient(portal.ClientOptions{
		BaseURL:    cfg.Portal.BaseURL,
		Timeout:    time.Duration(cfg.Monitor.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Monitor.MaxRetries,
	})
	if err != nil {
		return exitNoData, err
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return exitNoData, err
	}
	defer st.Close() //nolint:errcheck

	detector := detect.New(client, portal.NewExtractor(client.Base()), st,
		cfg.Monitor.CategoryIDs,
		time.Duration(cfg.Monitor.RequestDelaySecs)*time.Second,
	)

	fmt.Println("Checking SPP OpsPortal for studies...")
	result, err := detector.Check(ctx)
	if errors.Is(err, detect.ErrNoData) {
		fmt.Println("No studies found. The portal may be unavailable or its page structure changed.")
		if uerr := st.UpdateLastCheck(ctx); uerr != nil {
			zap.L().Warn("update last check", zap.Error(uerr))
		}
		return exitNoData, nil
	}
	if err != nil {
		return exitNoData, err
	}

	fmt.Printf("Found %d total study entries\n", len(result.Studies))

	if len(result.New) == 0 {
		fmt.Println("No new studies since last check.")
		if err := st.UpdateLastCheck(ctx); err != nil {
			return exitOK, err
		}
		return exitOK, nil
	}

	printNewStudies(result.New)

	if dryRun {
		fmt.Println("[dry run] Skipping notifications and not marking studies as seen.")
		return exitOK, nil
	}

	delivered := notifyAll(ctx, cfg, client.IndexURL(), result.New)

	// Mark seen even when delivery failed: a study that maybe went
	// unnotified beats re-alerting the same item every cycle.
	if err := st.MarkSeen(ctx, result.New); err != nil {
		return exitNotifyFailed, err
	}
	count, err := st.SeenCount(ctx)
	if err != nil {
		return exitNotifyFailed, err
	}
	fmt.Printf("\nMarked %d studies as seen. Total tracked: %d\n", len(result.New), count)

	if !delivered {
		return exitNotifyFailed, nil
	}
	return exitOK, nil
}

func printNewStudies(studies []model.Study) {
	fmt.Printf("\n%d NEW STUDY POSTING(S) DETECTED\n\n", len(studies))
	for i, s := range studies {
		fmt.Printf("  %d. %s\n", i+1, s.Name)
		fmt.Printf("     Category: %s\n", s.CategoryLabel)
		fmt.Printf("     URL: %s\n", s.URL)
		for k, v := range s.Details {
			if strings.HasSuffix(k, "_url") || v == "" {
				continue
			}
			fmt.Printf("     %s: %s\n", k, v)
		}
		fmt.Println()
	}
}

// notifyAll tries every configured channel and reports whether all of them
// delivered. A channel with recipients but no credentials is skipped with a
// diagnostic rather than counted as failed.
func notifyAll(ctx context.Context, cfg *config.Config, portalURL string, studies []model.Study) bool {
	delivered := true

	switch {
	case len(cfg.Notify.EmailRecipients) == 0:
		// Channel not configured.
	case cfg.SMTP.Username == "":
		fmt.Println("Email recipients configured but SMTP credentials missing. Skipping email.")
	default:
		fmt.Printf("Sending email to %d recipient(s)...\n", len(cfg.Notify.EmailRecipients))
		n := notify.NewEmail(cfg.SMTP, cfg.Notify.EmailRecipients, portalURL)
		if err := n.Send(ctx, studies); err != nil {
			zap.L().Error("email notification failed", zap.Error(err))
			delivered = false
		} else {
			fmt.Println("Email sent successfully.")
		}
	}

	switch {
	case len(cfg.Notify.SMSRecipients) == 0:
	case cfg.Twilio.AccountSID == "":
		fmt.Println("SMS recipients configured but Twilio credentials missing. Skipping SMS.")
	default:
		fmt.Printf("Sending SMS to %d recipient(s)...\n", len(cfg.Notify.SMSRecipients))
		n := notify.NewSMS(cfg.Twilio, cfg.Notify.SMSRecipients, portalURL)
		if err := n.Send(ctx, studies); err != nil {
			zap.L().Error("sms notification failed", zap.Error(err))
			delivered = false
		} else {
			fmt.Println("SMS sent successfully.")
		}
	}

	return delivered
}
