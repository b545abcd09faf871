package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jordanjoelson/ai-lead-gen/models"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

const topRatedCount = 5

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Generate computes coverage and data-quality figures over leads. A lead has
// an issue when its phone or website is invalid or its email is malformed; a
// missing email alone is not an issue.
func (s *SummaryService) Generate(leads []models.Lead) *models.LeadSummary {
	report := &models.LeadSummary{
		Categories: make(map[string]int),
		TopRated:   []models.Lead{},
	}

	if len(leads) == 0 {
		return report
	}

	report.TotalLeads = len(leads)

	var rated []models.Lead
	var ratingTotal float64

	for _, l := range leads {
		if l.Email != "" {
			report.WithEmail++
		}
		if l.Phone != "" {
			report.WithPhone++
		}
		if l.Website != "" {
			report.WithWebsite++
		}
		if l.Category != "" {
			report.Categories[l.Category]++
		}
		if l.Rating != nil {
			rated = append(rated, l)
			ratingTotal += *l.Rating
		}
		if hasIssue(&l) {
			report.LeadsWithIssues++
		}
	}

	total := float64(report.TotalLeads)
	report.EmailCoverage = round2(float64(report.WithEmail) / total * 100)
	report.PhoneCoverage = round2(float64(report.WithPhone) / total * 100)
	report.WebsiteCoverage = round2(float64(report.WithWebsite) / total * 100)
	report.DataQualityScore = round2(float64(report.TotalLeads-report.LeadsWithIssues) / total * 100)
	if len(rated) > 0 {
		report.AverageRating = round2(ratingTotal / float64(len(rated)))
	}

	// Top 5 by rating, more reviews first on ties
	sort.SliceStable(rated, func(i, j int) bool {
		ri, rj := *rated[i].Rating, *rated[j].Rating
		if ri != rj {
			return ri > rj
		}
		return reviews(&rated[i]) > reviews(&rated[j])
	})
	if len(rated) > topRatedCount {
		rated = rated[:topRatedCount]
	}
	report.TopRated = append(report.TopRated, rated...)

	return report
}

func hasIssue(l *models.Lead) bool {
	if l.HasFlag(models.FlagInvalidPhone) || l.HasFlag(models.FlagInvalidWebsite) {
		return true
	}
	return l.Email != "" && !ValidEmail(l.Email)
}

func reviews(l *models.Lead) int {
	if l.ReviewsCount == nil {
		return 0
	}
	return *l.ReviewsCount
}

// Print renders the report for a terminal.
func (s *SummaryService) Print(w io.Writer, sess *models.Session, r *models.LeadSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  LEAD SUMMARY: %s in %s\033[0m\n", sess.Query, sess.Location)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Session        : %s (%s)\n", sess.ID, sess.Status)
	fmt.Fprintf(w, "  Total leads    : \033[1m%d\033[0m\n", r.TotalLeads)
	fmt.Fprintf(w, "  Raw / dup / dropped : %d / %d / %d\n",
		sess.ScrapeStats.RawRecords, sess.ScrapeStats.Duplicates, sess.ScrapeStats.Dropped)
	if sess.ScrapeStats.FailedFetches > 0 {
		fmt.Fprintf(w, "  Failed fetches : \033[1;31m%d\033[0m\n", sess.ScrapeStats.FailedFetches)
	}
	fmt.Fprintln(w)

	// Coverage
	fmt.Fprintf(w, "\033[1;33m  Contact Coverage\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Email   : %4d  (\033[1;32m%.2f%%\033[0m)\n", r.WithEmail, r.EmailCoverage)
	fmt.Fprintf(w, "  Phone   : %4d  (\033[1;32m%.2f%%\033[0m)\n", r.WithPhone, r.PhoneCoverage)
	fmt.Fprintf(w, "  Website : %4d  (\033[1;32m%.2f%%\033[0m)\n", r.WithWebsite, r.WebsiteCoverage)
	fmt.Fprintf(w, "  Data quality score : \033[1m%.2f\033[0m (%d leads with issues)\n",
		r.DataQualityScore, r.LeadsWithIssues)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top %d Highest Rated\033[0m\n", topRatedCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Fprintf(w, "  No rated leads found\n")
	} else {
		for i, l := range r.TopRated {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%.1f ★\033[0m (%d)\n",
				i+1, truncate(l.Name, 38), *l.Rating, reviews(&l))
		}
		fmt.Fprintf(w, "  Average rating : %.2f\n", r.AverageRating)
	}
	fmt.Fprintln(w)

	// Categories
	fmt.Fprintf(w, "\033[1;33m  Leads by Category\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Categories) == 0 {
		fmt.Fprintf(w, "  No category data\n")
	} else {
		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range r.Categories {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].count != cats[j].count {
				return cats[i].count > cats[j].count
			}
			return cats[i].cat < cats[j].cat
		})
		for _, cc := range cats {
			bar := strings.Repeat("█", cc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(cc.cat, 28), bar, cc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
