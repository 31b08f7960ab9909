package pipeline

import (
	"fmt"
	"time"

	"github.com/ifuryst/herald/internal/models"
)

// Counter aggregates the outcome of one category.
type Counter struct {
	Attempted int `json:"attempted"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// ItemResult is the outcome of one item. Skipped items were claimed by a
// concurrent run and left alone.
type ItemResult struct {
	ID             string       `json:"id"`
	Success        bool         `json:"success"`
	Skipped        bool         `json:"skipped,omitempty"`
	ExternalPostID string       `json:"external_post_id,omitempty"`
	PostURL        string       `json:"post_url,omitempty"`
	Error          string       `json:"error,omitempty"`
	CrossPosts     []ItemResult `json:"cross_posts,omitempty"`
}

// Summary is returned to whoever triggered the run.
type Summary struct {
	Message            string       `json:"message"`
	Legacy             Counter      `json:"legacy"`
	Production         Counter      `json:"production"`
	Company            Counter      `json:"company"`
	Results            []ItemResult `json:"results"`
	ProductionResults  []ItemResult `json:"productionResults"`
	CompanyPostResults []ItemResult `json:"companyPostResults"`
}

func count(results []ItemResult) Counter {
	c := Counter{Attempted: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			c.Skipped++
		case r.Success:
			c.Success++
		default:
			c.Failed++
		}
	}
	return c
}

func nonNil(results []ItemResult) []ItemResult {
	if results == nil {
		return []ItemResult{}
	}
	return results
}

// NewSummary counts each category and builds the run message.
func NewSummary(legacy, production, company []ItemResult) *Summary {
	s := &Summary{
		Legacy:             count(legacy),
		Production:         count(production),
		Company:            count(company),
		Results:            nonNil(legacy),
		ProductionResults:  nonNil(production),
		CompanyPostResults: nonNil(company),
	}
	s.Message = fmt.Sprintf("Processed %d legacy + %d production + %d company posts",
		len(legacy), len(production), len(company))
	return s
}

// Failed is the number of failed items across all categories.
func (s *Summary) Failed() int {
	return s.Legacy.Failed + s.Production.Failed + s.Company.Failed
}

// Run converts the summary into its persisted form.
func (s *Summary) Run(trigger string, started, finished time.Time) *models.PipelineRun {
	return &models.PipelineRun{
		Trigger:             trigger,
		StartedAt:           started,
		FinishedAt:          &finished,
		LegacyAttempted:     s.Legacy.Attempted,
		LegacySuccess:       s.Legacy.Success,
		LegacyFailed:        s.Legacy.Failed,
		ProductionAttempted: s.Production.Attempted,
		ProductionSuccess:   s.Production.Success,
		ProductionFailed:    s.Production.Failed,
		CompanyAttempted:    s.Company.Attempted,
		CompanySuccess:      s.Company.Success,
		CompanyFailed:       s.Company.Failed,
		Skipped:             s.Legacy.Skipped + s.Production.Skipped + s.Company.Skipped,
	}
}
