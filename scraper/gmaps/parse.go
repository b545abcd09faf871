package gmaps

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jordanjoelson/ai-lead-gen/scraper"
)

var (
	// placeIDRegexp captures the ChIJ… place id embedded in place URLs
	placeIDRegexp = regexp.MustCompile(`!19s([^!?&/]+)`)
	// featureIDRegexp captures the 0x…:0x… feature id used when no place id is present
	featureIDRegexp = regexp.MustCompile(`!1s(0x[0-9a-fA-F]+:0x[0-9a-fA-F]+)`)
	// placeSlugRegexp captures the /place/<slug> path segment
	placeSlugRegexp = regexp.MustCompile(`/maps/place/([^/?]+)`)
	// coordsRegexp captures latitude and longitude from the !3d…!4d… data segment
	coordsRegexp = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)
)

const infoSeparator = "·"

// ParseFeed extracts one RawRecord per place card in the rendered results feed,
// in the order the feed lists them.
func ParseFeed(html string) ([]scraper.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("gmaps: parse feed: %w", err)
	}

	seen := make(map[string]struct{})
	var records []scraper.RawRecord

	doc.Find(`a[href*="/maps/place/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		card := link.Parent()
		name := strings.TrimSpace(link.AttrOr("aria-label", ""))
		if name == "" {
			name = strings.TrimSpace(card.Find(".qBF1Pd").First().Text())
		}

		rec := scraper.RawRecord{
			Name:         name,
			Rating:       strings.TrimSpace(card.Find("span.MW4etd").First().Text()),
			ReviewsCount: strings.TrimSpace(card.Find("span.UY7F9").First().Text()),
			Phone:        strings.TrimSpace(card.Find("span.UsdlK").First().Text()),
			Website:      card.Find(`a[data-value="Website"]`).First().AttrOr("href", ""),
			SourceURL:    href,
			SourceID:     PlaceID(href),
		}
		rec.Category, rec.Address = infoLine(card)
		rec.Latitude, rec.Longitude = Coordinates(href)

		records = append(records, rec)
	})

	return records, nil
}

// infoLine reads the "Category · Address" line of a card.
func infoLine(card *goquery.Selection) (category, address string) {
	var parts []string
	card.Find(".W4Efsd .W4Efsd").EachWithBreak(func(_ int, line *goquery.Selection) bool {
		for _, p := range strings.Split(line.Text(), infoSeparator) {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return len(parts) == 0
	})

	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], parts[len(parts)-1]
}

// Detail holds the contact fields of a place page.
type Detail struct {
	Phone   string
	Website string
	Address string
}

// ParseDetail extracts contact fields from a rendered place page.
func ParseDetail(html string) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Detail{}, fmt.Errorf("gmaps: parse detail: %w", err)
	}

	var d Detail
	if id, ok := doc.Find(`button[data-item-id^="phone:tel:"]`).First().Attr("data-item-id"); ok {
		d.Phone = strings.TrimPrefix(id, "phone:tel:")
	}
	d.Website = doc.Find(`a[data-item-id="authority"]`).First().AttrOr("href", "")
	d.Address = strings.TrimSpace(doc.Find(`button[data-item-id="address"]`).First().Text())
	return d, nil
}

// PlaceID returns the most stable identifier the place URL carries, or "".
func PlaceID(href string) string {
	if m := placeIDRegexp.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if m := featureIDRegexp.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if m := placeSlugRegexp.FindStringSubmatch(href); m != nil {
		if slug, err := url.PathUnescape(m[1]); err == nil {
			return slug
		}
		return m[1]
	}
	return ""
}

// Coordinates returns the textual latitude and longitude in a place URL.
func Coordinates(href string) (lat, lng string) {
	if m := coordsRegexp.FindStringSubmatch(href); m != nil {
		return m[1], m[2]
	}
	return "", ""
}
