package detect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spp-monitor/internal/portal"
	"github.com/sells-group/spp-monitor/internal/store"
)

// newPortalServer fakes the OpsPortal: an index page linking two categories
// and one study table per category.
func newPortalServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/Studies/Gen", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<a href="/Studies/GenList?yearTypeId=243">DISIS 2024-001</a>
<a href="/Studies/GenList?yearTypeId=244">DISIS 2024-002</a>
</body></html>`)
	})
	mux.HandleFunc("/Studies/GenList", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("yearTypeId") {
		case "243":
			fmt.Fprint(w, `<html><body><table>
<tr><th>Study Name</th></tr>
<tr><td><a href="/docs/a.pdf">GEN-2024-001 Impact Study</a></td></tr>
<tr><td><a href="/docs/b.pdf">GEN-2024-002 Impact Study</a></td></tr>
</table></body></html>`)
		case "244":
			fmt.Fprint(w, `<html><body><table>
<tr><th>Study Name</th></tr>
<tr><td><a href="/docs/c.pdf">GEN-2024-003 Restudy</a></td></tr>
</table></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})
	return httptest.NewServer(mux)
}

func newDetector(t *testing.T, baseURL string, st store.Store, categoryIDs []int) *Detector {
	t.Helper()
	client, err := portal.NewClient(portal.ClientOptions{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	return New(client, portal.NewExtractor(client.Base()), st, categoryIDs, 0)
}

func TestDetector_Check(t *testing.T) {
	srv := newPortalServer(t)
	defer srv.Close()

	st := store.NewFile(filepath.Join(t.TempDir(), "seen.json"))
	d := newDetector(t, srv.URL, st, nil)
	ctx := context.Background()

	result, err := d.Check(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Studies, 3)
	assert.Len(t, result.New, 3)

	// Categories come back in ascending id order.
	assert.Equal(t, "DISIS 2024-001", result.Studies[0].CategoryLabel)
	assert.Equal(t, "DISIS 2024-002", result.Studies[2].CategoryLabel)
}

func TestDetector_SecondCycleAfterCommitSeesNothingNew(t *testing.T) {
	srv := newPortalServer(t)
	defer srv.Close()

	st := store.NewFile(filepath.Join(t.TempDir(), "seen.json"))
	d := newDetector(t, srv.URL, st, nil)
	ctx := context.Background()

	result, err := d.Check(ctx)
	require.NoError(t, err)
	require.NoError(t, st.MarkSeen(ctx, result.New))

	again, err := d.Check(ctx)
	require.NoError(t, err)
	assert.Len(t, again.Studies, 3)
	assert.Empty(t, again.New)
}

func TestDetector_CheckWithoutCommitStaysNew(t *testing.T) {
	srv := newPortalServer(t)
	defer srv.Close()

	st := store.NewFile(filepath.Join(t.TempDir(), "seen.json"))
	d := newDetector(t, srv.URL, st, nil)
	ctx := context.Background()

	_, err := d.Check(ctx)
	require.NoError(t, err)

	again, err := d.Check(ctx)
	require.NoError(t, err)
	assert.Len(t, again.New, 3)
}

func TestDetector_ExplicitCategoryRestriction(t *testing.T) {
	srv := newPortalServer(t)
	defer srv.Close()

	st := store.NewFile(filepath.Join(t.TempDir(), "seen.json"))
	d := newDetector(t, srv.URL, st, []int{244})

	result, err := d.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Studies, 1)
	assert.Equal(t, "GEN-2024-003 Restudy", result.Studies[0].Name)
	assert.Equal(t, "DISIS 2024-002", result.Studies[0].CategoryLabel)
}

func TestDetector_SynthesizedLabelWhenDiscoveryMissesID(t *testing.T) {
	srv := newPortalServer(t)
	defer srv.Close()

	// 999 is not on the index page, so its label is synthesized and its
	// list fetch 404s; 243 still succeeds.
	st := store.NewFile(filepath.Join(t.TempDir(), "seen.json"))
	d := newDetector(t, srv.URL, st, []int{243, 999})

	result, err := d.Check(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Studies, 2)
	for _, s := range result.Studies {
		assert.Equal(t, 243, s.CategoryID)
	}
}

func TestDetector_AllFetchesFailingReportsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	st := store.NewFile(filepath.Join(t.TempDir(), "seen.json"))

	// Discovery fails too, so with no explicit ids there is nothing to check.
	d := newDetector(t, srv.URL, st, nil)
	_, err := d.Check(context.Background())
	assert.ErrorIs(t, err, ErrNoData)

	// With explicit ids the list fetches themselves fail.
	d = newDetector(t, srv.URL, st, []int{243})
	_, err = d.Check(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}
