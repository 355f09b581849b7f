package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ambridge/internal/config"
)

func episodePage(heading, blurb, synopsis string) string {
	return fmt.Sprintf(`<html><body>
<h1>%s</h1>
<div class="synopsis-toggle__short"><p>%s</p></div>
<div class="synopsis-toggle__long"><p>%s</p></div>
</body></html>`, heading, synopsis, blurb)
}

func guidePage(pids ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ol class="pagination"><li class="pagination__page--last"><a>2</a></li></ol>`)
	for _, pid := range pids {
		fmt.Fprintf(&b, `<div data-pid="%s"></div>`, pid)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

type fixture struct {
	server *httptest.Server
	flaky  atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	mux := http.NewServeMux()
	mux.HandleFunc("/series/episodes/guide", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprint(w, guidePage("m003", "m002", "m003"))
		case "2":
			fmt.Fprint(w, guidePage("m001", "mspecial", "mrpt", "mfuture"))
		default:
			fmt.Fprint(w, guidePage())
		}
	})
	pages := map[string]string{
		"m003":     episodePage("The Archers 03/03/2024", "Tom worries.<br>Meanwhile, Pat frets.", "Tom worries."),
		"m002":     episodePage("The Archers 02/03/2024", "Alice rides.", "Alice rides."),
		"m001":     episodePage("The Archers 01/03/2024", "Jazzer sings.", "Jazzer sings."),
		"mspecial": episodePage("The Archers: Omnibus", "Everything.", "Everything."),
		"mrpt":     episodePage("The Archers 28/02/2024", "Rpt of Tuesday.", "Rpt"),
		"mfuture":  episodePage("The Archers 01/01/2099", "Later.", "Later."),
	}
	for pid, body := range pages {
		mux.HandleFunc("/"+pid, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		})
	}
	mux.HandleFunc("/mflaky", func(w http.ResponseWriter, r *http.Request) {
		if f.flaky.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, episodePage("The Archers 05/03/2024", "Eventually.", "Eventually."))
	})
	mux.HandleFunc("/mgone", func(w http.ResponseWriter, r *http.Request) {
		f.flaky.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) scraper() *Scraper {
	s := New(config.ScraperConfig{
		SeriesID:       "series",
		BaseURL:        f.server.URL + "/",
		MaxWorkers:     2,
		TimeoutSeconds: 5,
		MaxRetries:     3,
		UserAgent:      "test",
	}, nil).WithBackoff(time.Millisecond)
	s.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestEpisodeParsesPage(t *testing.T) {
	f := newFixture(t)
	rec, err := f.scraper().Episode(context.Background(), "m003")
	require.NoError(t, err)
	assert.Equal(t, "m003", rec.PID)
	assert.Equal(t, "2024-03-03", rec.Date)
	assert.Equal(t, "Tom worries.\nMeanwhile, Pat frets.", rec.Blurb)
	assert.Equal(t, "Tom worries.", rec.Synopsis)
}

func TestEpisodeSkips(t *testing.T) {
	f := newFixture(t)
	s := f.scraper()
	_, err := s.Episode(context.Background(), "mspecial")
	assert.ErrorIs(t, err, ErrSpecial)
	_, err = s.Episode(context.Background(), "mrpt")
	assert.ErrorIs(t, err, ErrRepeat)
	_, err = s.Episode(context.Background(), "mfuture")
	assert.ErrorIs(t, err, ErrFuture)
}

func TestRetriesServerErrors(t *testing.T) {
	f := newFixture(t)
	rec, err := f.scraper().Episode(context.Background(), "mflaky")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", rec.Date)
	assert.Equal(t, int32(3), f.flaky.Load())
}

func TestNotFoundIsPermanent(t *testing.T) {
	f := newFixture(t)
	_, err := f.scraper().Episode(context.Background(), "mgone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), f.flaky.Load())
}

func TestAllCrawlsEveryPageNewestFirst(t *testing.T) {
	f := newFixture(t)
	recs, err := f.scraper().All(context.Background())
	require.NoError(t, err)
	var pids []string
	for _, r := range recs {
		pids = append(pids, r.PID)
	}
	assert.Equal(t, []string{"m003", "m002", "m001"}, pids)
}

func TestSinceStopsAtOverlap(t *testing.T) {
	f := newFixture(t)
	recs, err := f.scraper().Since(context.Background(), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "m003", recs[0].PID)
}

func TestSinceWalksPages(t *testing.T) {
	f := newFixture(t)
	recs, err := f.scraper().Since(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestLastPageDefaultsToOne(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, 1, lastPage(doc))
}
