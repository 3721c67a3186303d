package lineup

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/request"
)

// Fetch requests the lineup page and extracts the bands on it.
func Fetch(ctx context.Context, client *http.Client, pageURL string) ([]data.Band, error) {
	doc, err := request.FetchHTML(ctx, client, pageURL)
	if err != nil {
		return nil, err
	}
	return parseDocument(doc, pageURL), nil
}

// Parse reads a lineup page from r. Relative links and image sources are
// resolved against baseURL.
func Parse(r io.Reader, baseURL string) ([]data.Band, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return parseDocument(doc, baseURL), nil
}

func parseDocument(doc *goquery.Document, baseURL string) []data.Band {
	base, _ := url.Parse(baseURL)

	var bands []data.Band
	seen := map[string]struct{}{}
	doc.Find("a[href*='/bands/']").Each(func(i int, sel *goquery.Selection) {
		band := bandElement{sel, base}.Band()
		if band.Name == "" {
			return
		}
		if _, dup := seen[band.Name]; dup {
			return
		}
		seen[band.Name] = struct{}{}
		bands = append(bands, band)
	})
	return bands
}

// A bandElement is the link for a single band on the lineup page. The page
// wraps each band's picture and name in an anchor pointing at the band's own
// page; the markup inside the anchor changes from year to year, so every
// field falls back to empty instead of failing.
type bandElement struct {
	*goquery.Selection
	base *url.URL
}

func (el bandElement) Band() data.Band {
	return data.Band{
		Name:       el.Name(),
		ImageURL:   el.Image(),
		Link:       el.resolve(el.AttrOr("href", "")),
		Country:    el.meta("country"),
		Genre:      el.meta("genre"),
		Noteworthy: el.meta("noteworthy"),
	}
}

var spaceRE = regexp.MustCompile(`\s+`)

func (el bandElement) Name() string {
	name := el.AttrOr("title", "")
	if name == "" {
		name = el.Find("h1, h2, h3, h4, .band-name, .name").First().Text()
	}
	if name == "" {
		name = el.Find("img").First().AttrOr("alt", "")
	}
	if name == "" {
		name = el.Text()
	}
	return strings.TrimSpace(spaceRE.ReplaceAllString(name, " "))
}

var backgroundRE = regexp.MustCompile(`background(?:-image)?\s*:\s*url\(\s*['"]?([^'")]+)['"]?\s*\)`)

func (el bandElement) Image() string {
	img := el.Find("img").First()
	for _, attr := range []string{"data-src", "data-lazy-src", "src"} {
		if src := strings.TrimSpace(img.AttrOr(attr, "")); src != "" && !strings.HasPrefix(src, "data:") {
			return el.resolve(src)
		}
	}

	var found string
	el.Find("[style]").AddSelection(el.Selection).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if match := backgroundRE.FindStringSubmatch(sel.AttrOr("style", "")); match != nil {
			found = el.resolve(match[1])
			return false
		}
		return true
	})
	return found
}

// meta reads optional details such as <span class="country">Finland</span>
// or data-country="Finland".
func (el bandElement) meta(name string) string {
	if v, ok := el.Attr("data-" + name); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(el.Find("." + name).First().Text())
}

func (el bandElement) resolve(ref string) string {
	if ref == "" || el.base == nil {
		return ref
	}
	u, err := el.base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
