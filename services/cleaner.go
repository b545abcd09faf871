package services

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/scraper"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

var (
	// numberRegexp captures the first signed decimal number in a string
	numberRegexp = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	// integerRegexp captures the first signed integer once thousands separators are gone
	integerRegexp = regexp.MustCompile(`-?\d+`)
)

const fallbackKeyPrefix = "nk_"

// Cleaner transforms RawRecords into normalized Leads.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Normalize converts one raw record. It reports false when the record has no
// usable name and must be dropped. Unparseable or out-of-range numeric fields
// become absent rather than clamped.
func (c *Cleaner) Normalize(r scraper.RawRecord) (models.Lead, bool) {
	name := normaliseText(r.Name)
	if name == "" {
		c.logger.Warn("[cleaner] Dropping record without a name: %s", r.SourceURL)
		return models.Lead{}, false
	}

	lead := models.Lead{
		Name:         name,
		Address:      normaliseText(r.Address),
		Phone:        canonicalPhone(r.Phone),
		Website:      normaliseWebsite(r.Website),
		Category:     strings.ToLower(normaliseText(r.Category)),
		Rating:       c.parseRating(r.Rating),
		ReviewsCount: c.parseReviews(r.ReviewsCount),
		SourceURL:    strings.TrimSpace(r.SourceURL),
		SourceID:     strings.TrimSpace(r.SourceID),
		Coordinates:  parseCoordinates(r.Latitude, r.Longitude),
	}
	if lead.SourceID == "" {
		lead.SourceID = FallbackKey(lead.Name, lead.Address)
	}
	return lead, true
}

// FallbackKey derives a dedup key from name and address for records whose
// source supplied no identifier.
func FallbackKey(name, address string) string {
	sum := sha256.Sum256([]byte(
		strings.ToLower(normaliseText(name)) + "\x00" + strings.ToLower(normaliseText(address)),
	))
	return fallbackKeyPrefix + hex.EncodeToString(sum[:])[:16]
}

// parseRating extracts a 0.0–5.0 numeric rating from a raw string.
func (c *Cleaner) parseRating(raw string) *float64 {
	match := numberRegexp.FindString(raw)
	if match == "" {
		return nil
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	if val < 0 || val > 5 {
		c.logger.Debug("[cleaner] Rating %q out of range, leaving it absent", raw)
		return nil
	}
	return &val
}

// parseReviews reads counts like "(1,234)" or "1.234 reviews" ("." as a
// thousands separator is not supported).
func (c *Cleaner) parseReviews(raw string) *int {
	match := integerRegexp.FindString(strings.ReplaceAll(raw, ",", ""))
	if match == "" {
		return nil
	}
	val, err := strconv.Atoi(match)
	if err != nil || val < 0 {
		return nil
	}
	return &val
}

func parseCoordinates(rawLat, rawLng string) *models.Coordinates {
	lat, err := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(rawLng), 64)
	if err != nil {
		return nil
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil
	}
	return &models.Coordinates{Lat: lat, Lng: lng}
}

// canonicalPhone keeps the digits of a phone number and a leading "+".
func canonicalPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	if out := b.String(); out != "+" {
		return out
	}
	return ""
}

// normaliseWebsite unwraps Google redirect links to the target they point at.
func normaliseWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if strings.HasSuffix(u.Hostname(), "google.com") && u.Path == "/url" {
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	}
	return raw
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
