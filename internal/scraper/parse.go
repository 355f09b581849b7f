package scraper

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/agenthands/ambridge/internal/core/model"
)

var (
	// ErrSpecial marks a page whose heading carries no broadcast date.
	ErrSpecial = errors.New("special episode")
	ErrFuture  = errors.New("episode not yet broadcast")
	ErrRepeat  = errors.New("repeat broadcast")

	headingDate = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)
)

const headingLayout = "02/01/2006"

// guidePIDs lists the programme ids on an episode guide page, in page order.
func guidePIDs(doc *goquery.Document) []string {
	var pids []string
	doc.Find("[data-pid]").Each(func(_ int, sel *goquery.Selection) {
		if pid, ok := sel.Attr("data-pid"); ok && pid != "" {
			pids = append(pids, pid)
		}
	})
	return pids
}

// lastPage reads the final page number from the guide pagination; a guide
// without pagination has one page.
func lastPage(doc *goquery.Document) int {
	text := strings.TrimSpace(doc.Find("li.pagination__page--last").First().Text())
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// parseEpisode extracts the record from an episode page. today is the first
// day that counts as the future.
func parseEpisode(pid string, doc *goquery.Document, today time.Time) (model.RawEpisode, error) {
	heading := doc.Find("h1").First().Text()
	m := headingDate.FindStringSubmatch(heading)
	if m == nil {
		return model.RawEpisode{}, ErrSpecial
	}
	date, err := time.ParseInLocation(headingLayout, m[1], time.UTC)
	if err != nil {
		return model.RawEpisode{}, ErrSpecial
	}
	if !date.Before(today) {
		return model.RawEpisode{}, ErrFuture
	}

	synopsisEl := doc.Find(".longest-synopsis").First()
	if synopsisEl.Length() == 0 {
		synopsisEl = doc.Find(".synopsis-toggle__short").First()
	}
	descriptionEl := doc.Find(".synopsis-toggle__long").First()
	if descriptionEl.Length() == 0 {
		descriptionEl = synopsisEl
	}
	descriptionEl.Find("br").ReplaceWithHtml("\n")

	var paragraphs []string
	descriptionEl.Find("p").Each(func(_ int, p *goquery.Selection) {
		paragraphs = append(paragraphs, p.Text())
	})
	blurb := strings.Join(paragraphs, "\n")
	if strings.Contains(blurb, "Rpt") {
		return model.RawEpisode{}, ErrRepeat
	}

	return model.RawEpisode{
		PID:      pid,
		Date:     model.FormatDate(date),
		Blurb:    blurb,
		Synopsis: strings.TrimSpace(synopsisEl.Find("p").First().Text()),
	}, nil
}
