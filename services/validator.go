package services

import (
	"errors"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/jordanjoelson/ai-lead-gen/models"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

var errNoHost = errors.New("website has no host")

// Annotate recomputes the validation flags of every lead in place and returns
// how many leads carry at least one flag. Leads are never removed.
func Annotate(leads []models.Lead) int {
	flagged := 0
	for i := range leads {
		leads[i].ValidationFlags = Flags(&leads[i])
		if len(leads[i].ValidationFlags) > 0 {
			flagged++
		}
	}
	return flagged
}

// Flags returns the sorted validation flags that apply to l.
func Flags(l *models.Lead) []models.ValidationFlag {
	var flags []models.ValidationFlag
	if l.Email == "" {
		flags = append(flags, models.FlagMissingEmail)
	}
	if l.Phone != "" && !validPhone(l.Phone) {
		flags = append(flags, models.FlagInvalidPhone)
	}
	if l.Website != "" {
		if _, err := WebsiteDomain(l.Website); err != nil {
			flags = append(flags, models.FlagInvalidWebsite)
		}
	}
	slices.Sort(flags)
	return flags
}

// ValidEmail reports whether s is a syntactically plausible address.
func ValidEmail(s string) bool {
	return emailRegexp.MatchString(s)
}

// WebsiteDomain returns the lower-cased host of a website with any "www."
// prefix removed. A missing scheme defaults to https.
func WebsiteDomain(website string) (string, error) {
	website = strings.TrimSpace(website)
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" || !strings.Contains(host, ".") {
		return "", errNoHost
	}
	return host, nil
}

func validPhone(phone string) bool {
	digits := strings.TrimPrefix(phone, "+")
	return len(digits) >= minPhoneDigits && len(digits) <= maxPhoneDigits
}
