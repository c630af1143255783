package notify

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/sells-group/spp-monitor/internal/model"
)

// smsMaxLen is the Twilio message body cap.
const smsMaxLen = 1600

// detailKeys returns the study's renderable detail columns: sorted for
// deterministic output, with the derived *_url entries and empty values
// dropped.
func detailKeys(s model.Study) []string {
	keys := make([]string, 0, len(s.Details))
	for k, v := range s.Details {
		if strings.HasSuffix(k, "_url") || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// textSummary builds the plain-text email body.
func textSummary(studies []model.Study, portalURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d new SPP Impact Study posting(s):\n\n", len(studies))
	for i, s := range studies {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Name)
		fmt.Fprintf(&b, "   Category: %s\n", s.CategoryLabel)
		fmt.Fprintf(&b, "   Link: %s\n", s.URL)
		for _, k := range detailKeys(s) {
			fmt.Fprintf(&b, "   %s: %s\n", k, s.Details[k])
		}
		b.WriteString("\n")
	}
	b.WriteString("---\n")
	fmt.Fprintf(&b, "SPP OpsPortal: %s\n", portalURL)
	return b.String()
}

// htmlSummary builds the HTML email body.
func htmlSummary(studies []model.Study, portalURL string) string {
	var rows strings.Builder
	for _, s := range studies {
		var details strings.Builder
		for _, k := range detailKeys(s) {
			fmt.Fprintf(&details, "<br><small><b>%s:</b> %s</small>",
				html.EscapeString(k), html.EscapeString(s.Details[k]))
		}
		fmt.Fprintf(&rows, `<tr>
<td style="padding:8px;border:1px solid #ddd;"><a href="%s">%s</a></td>
<td style="padding:8px;border:1px solid #ddd;">%s</td>
<td style="padding:8px;border:1px solid #ddd;"><a href="%s">View</a>%s</td>
</tr>`,
			html.EscapeString(s.URL), html.EscapeString(s.Name),
			html.EscapeString(s.CategoryLabel),
			html.EscapeString(s.URL), details.String())
	}

	escaped := html.EscapeString(portalURL)
	return fmt.Sprintf(`<html>
<body style="font-family:Arial,sans-serif;max-width:700px;margin:0 auto;">
<h2 style="color:#003366;">New SPP Impact Studies Available</h2>
<p>%d new study posting(s) detected on the <a href="%s">SPP OpsPortal</a>.</p>
<table style="border-collapse:collapse;width:100%%;">
<tr style="background:#003366;color:white;">
<th style="padding:8px;border:1px solid #ddd;">Study Name</th>
<th style="padding:8px;border:1px solid #ddd;">Category</th>
<th style="padding:8px;border:1px solid #ddd;">Details</th>
</tr>
%s
</table>
<p style="color:#666;font-size:12px;margin-top:20px;">
This alert was sent by the SPP Impact Study Monitor.<br>
Visit <a href="%s">SPP OpsPortal</a> for full details.
</p>
</body></html>`, len(studies), escaped, rows.String(), escaped)
}

// smsBody builds the SMS alert text. One study gets its own line; several
// get the first three names plus a remainder count. The body is capped at
// smsMaxLen with a truncation marker.
func smsBody(studies []model.Study, portalURL string) string {
	var body string
	if len(studies) == 1 {
		s := studies[0]
		body = fmt.Sprintf("SPP Alert: New impact study posted - %s. Category: %s. View: %s",
			s.Name, s.CategoryLabel, s.URL)
	} else {
		names := make([]string, 0, 3)
		for _, s := range studies[:min(3, len(studies))] {
			names = append(names, s.Name)
		}
		extra := ""
		if len(studies) > 3 {
			extra = fmt.Sprintf(" (+%d more)", len(studies)-3)
		}
		body = fmt.Sprintf("SPP Alert: %d new impact studies posted: %s%s. View all: %s",
			len(studies), strings.Join(names, ", "), extra, portalURL)
	}

	if runes := []rune(body); len(runes) > smsMaxLen {
		body = string(runes[:smsMaxLen-3]) + "..."
	}
	return body
}
