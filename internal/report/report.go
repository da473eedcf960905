// Package report builds aggregate views over the case collection: counts
// by workflow status, line of business and broker, a human-readable text
// summary, and CSV/JSON exports for downstream systems.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
)

// Stats aggregates the case collection along the reporting axes.
type Stats struct {
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"byStatus"`
	ByLineOfBusiness map[string]int `json:"byLineOfBusiness"`
	ByBroker         map[string]int `json:"byBroker"`
	Flagged          int            `json:"flagged"`

	// ExportReady is pulled out of ByStatus because it is the number
	// the back office asks for first.
	ExportReady int `json:"exportReady"`
}

// Reporter renders aggregate reports from a case store.
type Reporter struct {
	store casestore.Store
}

// New creates a reporter over the given store.
func New(store casestore.Store) *Reporter {
	return &Reporter{store: store}
}

// Stats computes the aggregate counts over all cases.
func (r *Reporter) Stats(ctx context.Context) (*Stats, error) {
	cases, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	stats := &Stats{
		Total:            len(cases),
		ByStatus:         make(map[string]int),
		ByLineOfBusiness: make(map[string]int),
		ByBroker:         make(map[string]int),
	}
	for _, c := range cases {
		stats.ByStatus[string(c.Status)]++
		if c.LineOfBusiness != "" {
			stats.ByLineOfBusiness[c.LineOfBusiness]++
		}
		if broker := brokerLabel(c); broker != "" {
			stats.ByBroker[broker]++
		}
		if c.Flagged {
			stats.Flagged++
		}
		if c.Status == casestore.StatusExportReady {
			stats.ExportReady++
		}
	}
	return stats, nil
}

// brokerLabel prefers the broker name and falls back to the email
// address, which is the authoritative identifier anyway.
func brokerLabel(c *casestore.Case) string {
	if c.Broker.Name != "" {
		return c.Broker.Name
	}
	return c.Broker.Email
}

// Text renders the stats as a plain-text summary for the CLI and the
// report endpoint.
func (r *Reporter) Text(ctx context.Context) (string, error) {
	stats, err := r.Stats(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Case report — %s\n", time.Now().Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "Total cases: %d (flagged: %d, export-ready: %d)\n\n", stats.Total, stats.Flagged, stats.ExportReady)

	writeSection(&b, "By status", stats.ByStatus)
	writeSection(&b, "By line of business", stats.ByLineOfBusiness)
	writeSection(&b, "By broker", stats.ByBroker)

	return b.String(), nil
}

// writeSection prints one count map sorted by count descending, then
// key, so the output is stable.
func writeSection(b *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintf(b, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "  %-30s %d\n", k, counts[k])
	}
	b.WriteString("\n")
}

// csvHeader is the column layout the back-office import expects.
var csvHeader = []string{
	"id", "status", "customer", "policy_number", "carrier",
	"line_of_business", "broker_name", "broker_email",
	"validity_date", "messages", "flagged", "created_at",
}

// WriteCSV streams the full case collection as CSV.
func (r *Reporter) WriteCSV(ctx context.Context, w io.Writer) error {
	cases, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list cases: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range cases {
		validity := ""
		if c.ValidityDate != nil {
			validity = c.ValidityDate.Value.Format("02.01.2006")
		}
		row := []string{
			c.ID,
			string(c.Status),
			c.CustomerName(),
			c.PolicyNumberValue(),
			c.CarrierName(),
			c.LineOfBusiness,
			c.Broker.Name,
			c.Broker.Email,
			validity,
			fmt.Sprintf("%d", len(c.Messages)),
			fmt.Sprintf("%t", c.Flagged),
			c.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON streams the full case collection as a JSON array.
func (r *Reporter) WriteJSON(ctx context.Context, w io.Writer) error {
	cases, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list cases: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cases); err != nil {
		return fmt.Errorf("encode cases: %w", err)
	}
	return nil
}
