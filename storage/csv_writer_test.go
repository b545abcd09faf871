package storage

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/jordanjoelson/ai-lead-gen/models"
)

func TestCSVWriterRows(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}

	leads := []models.Lead{
		{
			Name:            "Smile, Dental",
			Phone:           "+15125550100",
			Website:         "https://smile.example",
			Category:        "dentist",
			Rating:          ptr(4.8),
			ReviewsCount:    ptr(120),
			SourceID:        "p1",
			Coordinates:     &models.Coordinates{Lat: 30.25, Lng: -97.75},
			ValidationFlags: []models.ValidationFlag{models.FlagInvalidWebsite, models.FlagMissingEmail},
		},
		{Name: "Bare", SourceID: "p2"},
	}
	if err := w.Write(leads); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(LeadCSVHeader, ",") {
		t.Errorf("header mismatch: %v", rows[0])
	}

	first := rows[1]
	want := []string{
		"Smile, Dental", "", "+15125550100", "", "https://smile.example", "dentist", "4.8",
		"120", "", "p1", "30.25,-97.75", "invalid_website;missing_email",
	}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("column %s: got %q, want %q", LeadCSVHeader[i], first[i], want[i])
		}
	}

	for i, v := range rows[2] {
		if i == 0 || i == 9 {
			continue
		}
		if v != "" {
			t.Errorf("absent column %s should be empty, got %q", LeadCSVHeader[i], v)
		}
	}
}
