package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/azcops/azcops/pkg/models/domain"
)

type TableConfig struct {
	ResourceWidth int
	RuleWidth     int
	SavingsWidth  int
	PriorityWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		ResourceWidth: 44,
		RuleWidth:     12,
		SavingsWidth:  12,
		PriorityWidth: 10,
	}
}

// Reporter renders ingestion results and recommendation tables as plain
// text for the scheduler's stdout.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (r *Reporter) IngestionSummary(result domain.TenantIngestionResult) error {
	tmpl := `
Ingestion run for tenant {{.TenantID}}

Subscriptions: {{.SubscriptionsProcessed}} processed, {{.SubscriptionsFailed}} failed
Resources:     {{.TotalResources}}
Cost records:  {{.TotalCostRecords}}
Duration:      {{printf "%.0f" .DurationMS}} ms
{{range .Results}}{{if not .Success}}
FAILED {{.SubscriptionID}}:{{range .Errors}}
  - {{.}}{{end}}
{{end}}{{end}}`

	t, err := template.New("ingestion").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(r.writer, result)
}

func (r *Reporter) Recommendations(recs []domain.Recommendation) error {
	funcMap := template.FuncMap{
		"formatRow": func(resource, rule, savings, priority string) string {
			return fmt.Sprintf("| %-*s | %-*s | %*s | %*s |",
				r.config.ResourceWidth, truncate(resource, r.config.ResourceWidth),
				r.config.RuleWidth, rule,
				r.config.SavingsWidth, savings,
				r.config.PriorityWidth, priority)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", r.config.ResourceWidth+2),
				strings.Repeat("-", r.config.RuleWidth+2),
				strings.Repeat("-", r.config.SavingsWidth+2),
				strings.Repeat("-", r.config.PriorityWidth+2))
		},
		"money": func(v float64) string {
			return fmt.Sprintf("$%.2f", v)
		},
		"score": func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		},
	}

	tmpl := `
Top open recommendations ({{len .}})

{{separator}}
{{formatRow "Resource" "Rule" "Savings/mo" "Priority"}}
{{separator}}
{{range .}}{{formatRow .ResourceName .RuleID (money .EstimatedMonthlySavings) (score .PriorityScore)}}
{{end}}{{separator}}
`

	t, err := template.New("recommendations").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(r.writer, recs)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
