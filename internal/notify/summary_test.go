package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/spp-monitor/internal/model"
)

const portalURL = "https://opsportal.spp.org/Studies/Gen"

func studyBatch(n int) []model.Study {
	names := []string{
		"GEN-2024-001 Impact Study",
		"GEN-2024-002 Impact Study",
		"GEN-2024-003 Restudy",
		"GEN-2024-004 Impact Study",
		"GEN-2024-005 Impact Study",
	}
	studies := make([]model.Study, n)
	for i := range studies {
		studies[i] = model.Study{
			Name:          names[i],
			URL:           "https://opsportal.spp.org/docs/" + names[i],
			CategoryID:    243,
			CategoryLabel: "DISIS 2024-001",
		}
	}
	return studies
}

func TestTextSummary(t *testing.T) {
	studies := studyBatch(2)
	studies[0].Details = map[string]string{
		"Posted":     "01/15/2024",
		"Report_url": "https://x/report.pdf",
		"Status":     "",
	}

	body := textSummary(studies, portalURL)

	assert.Contains(t, body, "Found 2 new SPP Impact Study posting(s)")
	assert.Contains(t, body, "1. GEN-2024-001 Impact Study")
	assert.Contains(t, body, "2. GEN-2024-002 Impact Study")
	assert.Contains(t, body, "Category: DISIS 2024-001")
	assert.Contains(t, body, "Posted: 01/15/2024")
	assert.Contains(t, body, portalURL)

	// Derived link columns and empty values stay out of the rendering.
	assert.NotContains(t, body, "Report_url")
	assert.NotContains(t, body, "Status:")
}

func TestHTMLSummary(t *testing.T) {
	studies := studyBatch(1)
	studies[0].Name = "Study <Q&A>"
	studies[0].Details = map[string]string{"Posted": "01/15/2024"}

	body := htmlSummary(studies, portalURL)

	assert.Contains(t, body, "1 new study posting(s)")
	assert.Contains(t, body, "Study &lt;Q&amp;A&gt;")
	assert.NotContains(t, body, "Study <Q&A>")
	assert.Contains(t, body, "<b>Posted:</b> 01/15/2024")
	assert.Contains(t, body, portalURL)
}

func TestSMSBody_SingleStudy(t *testing.T) {
	studies := studyBatch(1)
	body := smsBody(studies, portalURL)

	assert.Equal(t,
		"SPP Alert: New impact study posted - GEN-2024-001 Impact Study. "+
			"Category: DISIS 2024-001. View: "+studies[0].URL,
		body)
}

func TestSMSBody_ThreeNamesPlusRemainder(t *testing.T) {
	body := smsBody(studyBatch(5), portalURL)

	assert.Contains(t, body, "5 new impact studies posted")
	assert.Contains(t, body, "GEN-2024-001 Impact Study, GEN-2024-002 Impact Study, GEN-2024-003 Restudy")
	assert.Contains(t, body, "(+2 more)")
	assert.NotContains(t, body, "GEN-2024-004")
	assert.Contains(t, body, "View all: "+portalURL)
}

func TestSMSBody_NoRemainderAtThree(t *testing.T) {
	body := smsBody(studyBatch(3), portalURL)
	assert.NotContains(t, body, "more)")
}

func TestSMSBody_Truncation(t *testing.T) {
	studies := studyBatch(2)
	studies[0].Name = strings.Repeat("x", 2000)

	body := smsBody(studies, portalURL)

	assert.Len(t, []rune(body), smsMaxLen)
	assert.True(t, strings.HasSuffix(body, "..."))
}
