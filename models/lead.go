package models

// ValidationFlag names one data-quality issue found on a lead.
type ValidationFlag string

const (
	FlagMissingEmail   ValidationFlag = "missing_email"
	FlagInvalidPhone   ValidationFlag = "invalid_phone"
	FlagInvalidWebsite ValidationFlag = "invalid_website"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Lead is one normalized business discovered by a scrape.
// Optional numeric fields are pointers so that "absent" and "zero" stay distinct.
type Lead struct {
	Name            string           `json:"name"`
	Address         string           `json:"address,omitempty"`
	Phone           string           `json:"phone,omitempty"`
	Email           string           `json:"email,omitempty"`
	Website         string           `json:"website,omitempty"`
	Category        string           `json:"category,omitempty"`
	Rating          *float64         `json:"rating,omitempty"`
	ReviewsCount    *int             `json:"reviews_count,omitempty"`
	SourceURL       string           `json:"source_url,omitempty"`
	SourceID        string           `json:"source_id"`
	Coordinates     *Coordinates     `json:"coordinates,omitempty"`
	ValidationFlags []ValidationFlag `json:"validation_flags,omitempty"`
}

// HasFlag reports whether the lead carries the given validation flag.
func (l *Lead) HasFlag(f ValidationFlag) bool {
	for _, got := range l.ValidationFlags {
		if got == f {
			return true
		}
	}
	return false
}
