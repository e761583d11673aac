// Package notify composes and delivers the email alerts raised by a
// reconciliation run, an appeals comparison and the department upload
// hand-over. Composition is pure; delivery goes through a Sender.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/internal/claims"
	"claims-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Alert kinds raised after a reconciliation run
const (
	KindMissingSchedules     = "missing_schedules"
	KindAmountVariances      = "amount_variances"
	KindDateValidationErrors = "date_validation_errors"
)

const (
	alertSubjectPrefix = "Claims Reconciliation Alert - "
	appealsSubject     = "Appeals Finance Comparison Alert - Discrepancies Found"
	uploadSubject      = "Claims Reconciliation Tool: %s Department Upload"
	readySubject       = "Claims Reconciliation Tool: ALL FILES READY FOR RECONCILIATION"

	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "02/01/2006"
)

// Message is one composed email
type Message struct {
	Kind    string
	Subject string
	To      []string
	Cc      []string
	Body    string
	HTML    bool
}

// Recipients returns To followed by Cc
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc))
	out = append(out, m.To...)
	return append(out, m.Cc...)
}

// Recipients lists who receives each kind of message
type Recipients struct {
	To          []string `mapstructure:"to"`
	Cc          []string `mapstructure:"cc"`
	DateErrorCc []string `mapstructure:"date_error_cc"`
	Uploads     []string `mapstructure:"uploads"`
}

// Composer builds messages. It never sends anything.
type Composer struct {
	recipients Recipients
	signature  string
	now        func() time.Time
}

// NewComposer creates a composer. signature is the closing line under
// "Best regards," in plain text alerts.
func NewComposer(recipients Recipients, signature string) *Composer {
	if signature == "" {
		signature = "Claims Reconciliation System"
	}
	return &Composer{recipients: recipients, signature: signature, now: time.Now}
}

// WithClock replaces the time source used for "Generated on" stamps
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// AlertSubject builds the subject line for an alert kind,
// e.g. "Claims Reconciliation Alert - Missing Schedules"
func AlertSubject(kind string) string {
	words := strings.Fields(strings.ReplaceAll(kind, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return alertSubjectPrefix + strings.Join(words, " ")
}

func (c *Composer) alert(kind string, cc []string, body string) *Message {
	return &Message{
		Kind:    kind,
		Subject: AlertSubject(kind),
		To:      c.recipients.To,
		Cc:      cc,
		Body:    body,
	}
}

func (c *Composer) footer(b *strings.Builder) {
	fmt.Fprintf(b, "Generated on: %s\n\n", c.now().Format(timestampLayout))
	fmt.Fprintf(b, "Best regards,\n%s\n", c.signature)
}

// MissingSchedules alerts Finance about schedules sent by Claims that Finance
// has not recorded. Returns nil when schedules is empty.
func (c *Composer) MissingSchedules(schedules []string) *Message {
	if len(schedules) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("Dear Finance,\n\n")
	b.WriteString("This is an automated notification from the Claims Reconciliation System.\n\n")
	b.WriteString("CRITICAL ALERT: The following Schedule Numbers (SCH NO) were found in the Claims department report but are MISSING in the Finance department report:\n\n")
	b.WriteString("Missing Schedule Numbers:\n")
	for _, s := range schedules {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	fmt.Fprintf(&b, "\nTotal Missing Schedules: %d\n\n", len(schedules))
	b.WriteString("This indicates that these schedules were sent by Claims but have not been received or processed by Finance. Please investigate and take appropriate action.\n\n")
	c.footer(&b)

	return c.alert(KindMissingSchedules, c.recipients.Cc, b.String())
}

// AmountVariances alerts both departments about schedules whose totals
// disagree. Rows without both amounts are skipped; returns nil when nothing
// is left.
func (c *Composer) AmountVariances(rows []models.ReconciliationRow) *Message {
	var b strings.Builder
	count := 0
	for _, r := range rows {
		if !r.BothPresent() || !r.Difference.Valid {
			continue
		}
		if count == 0 {
			b.WriteString("Dear Claims/Finance Dept,\n\n")
			b.WriteString("This is an automated notification from the Claims Reconciliation System.\n\n")
			b.WriteString("AMOUNT VARIANCE ALERT: The following Schedule Numbers (SCH NO) have DIFFERENT AMOUNTS between Claims and Finance departments:\n\n")
			b.WriteString("Amount Variances:\n")
		}
		count++
		fmt.Fprintf(&b, "\n- SCH NO: %s\n", r.ScheduleNumber)
		fmt.Fprintf(&b, "  Claims Amount: %s\n", models.FormatAmount(r.ClaimsAmount.Decimal))
		fmt.Fprintf(&b, "  Finance Amount: %s\n", models.FormatAmount(r.FinanceAmount.Decimal))
		fmt.Fprintf(&b, "  Difference: %s\n", models.FormatAmount(r.Difference.Decimal))
	}
	if count == 0 {
		return nil
	}

	fmt.Fprintf(&b, "\nTotal Schedules with Amount Variances: %d\n\n", count)
	b.WriteString("Please review these discrepancies and ensure the amounts are properly reconciled. Edit the live sheet on the sharepoint.\n\n")
	c.footer(&b)

	return c.alert(KindAmountVariances, c.recipients.Cc, b.String())
}

// DateValidationErrors alerts Claims about rows whose encounter date falls
// after the claim was received. It goes to the narrower date error CC list.
func (c *Composer) DateValidationErrors(groups []claims.DateErrorGroup) *Message {
	if len(groups) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("Dear Claims,\n\n")
	b.WriteString("This is an automated notification from the Claims Reconciliation System.\n\n")
	b.WriteString("DATE VALIDATION ERROR ALERT: The following Schedule Numbers (SCH NO) have ENCOUNTER DATES that are AFTER the DATE CLAIM RECEIVED, which indicates a data entry error:\n\n")
	b.WriteString("Date Validation Errors:\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "\n- SCH NO: %s\n", g.ScheduleNumber)
		fmt.Fprintf(&b, "  Encounter Date: %s\n", g.EncounterDate.Format(dateLayout))
		fmt.Fprintf(&b, "  Date Claim Received: %s\n", g.ClaimReceivedDate.Format(dateLayout))
		b.WriteString("  Issue: Encounter date cannot be after the claim was received\n")
		fmt.Fprintf(&b, "  Number of Records: %d\n", g.Count)
	}
	b.WriteString("\nPlease review these data entry errors and edit the live sheet on the sharepoint to correct the dates. The encounter date should not be after the date the claim was received.\n\n")
	c.footer(&b)

	cc := c.recipients.DateErrorCc
	if len(cc) == 0 {
		cc = c.recipients.Cc
	}
	return c.alert(KindDateValidationErrors, cc, b.String())
}

var appealsTemplate = template.Must(template.New("appeals").Parse(`<html>
<body>
<h2>Appeals Finance Comparison Alert</h2>
<p>This is an automated notification from the Appeals Compilation system.</p>
<p><strong>Comparison completed at:</strong> {{.Generated}}</p>
<h3>Summary:</h3>
<ul>
<li><strong>Schedules missing in Finance:</strong> {{len .Missing}}</li>
<li><strong>Amount mismatches:</strong> {{len .Mismatches}}</li>
</ul>
{{- if .Missing}}
<h3>Schedules in Appeals but NOT in Finance:</h3>
<table border="1" style="border-collapse: collapse; width: 100%;">
<tr style="background-color: #f2f2f2;"><th>Schedule Number</th><th>Appeals Amount</th><th>Source Files</th></tr>
{{- range .Missing}}
<tr><td>{{.Schedule}}</td><td>{{.Appeals}}</td><td>{{.Files}}</td></tr>
{{- end}}
</table><br>
<p><strong>Total amount missing in Finance:</strong> {{.TotalMissing}}</p>
{{- end}}
{{- if .Mismatches}}
<h3>Amount Mismatches (Both in Appeals and Finance):</h3>
<table border="1" style="border-collapse: collapse; width: 100%;">
<tr style="background-color: #f2f2f2;"><th>Schedule Number</th><th>Appeals Amount</th><th>Finance Amount</th><th>Variance</th><th>Source Files</th></tr>
{{- range .Mismatches}}
<tr><td>{{.Schedule}}</td><td>{{.Appeals}}</td><td>{{.Finance}}</td><td style="color: {{.Color}};">{{.Variance}}</td><td>{{.Files}}</td></tr>
{{- end}}
</table><br>
<p><strong>Total variance:</strong> {{.TotalVariance}}</p>
{{- end}}
<p><strong>Action Required:</strong></p>
<ul>
<li>Review the missing schedules in the finance system</li>
<li>Investigate amount discrepancies for variance resolution</li>
<li>Check the Appeals Compilation system for detailed reports</li>
</ul>
<p>This is an automated message from the Appeals Compilation system.</p>
<p><em>Please do not reply to this email.</em></p>
</body>
</html>
`))

type appealsRow struct {
	Schedule string
	Appeals  string
	Finance  string
	Variance string
	Color    string
	Files    string
}

func newAppealsRow(r appeals.ComparisonRow) appealsRow {
	color := "blue"
	if r.Variance.IsPositive() {
		color = "red"
	}
	return appealsRow{
		Schedule: r.ScheduleNumber,
		Appeals:  models.FormatAmount(r.AppealsAmount),
		Finance:  models.FormatAmount(r.FinanceAmount),
		Variance: models.FormatAmount(r.Variance),
		Color:    color,
		Files:    r.SourceFilesString(),
	}
}

// AppealsComparison reports appeals schedules missing from Finance and
// amount mismatches as an HTML table. Returns nil, nil when the comparison
// found no discrepancies.
func (c *Composer) AppealsComparison(cmp *appeals.Comparison) (*Message, error) {
	if cmp == nil || !cmp.HasDiscrepancies() {
		return nil, nil
	}

	data := struct {
		Generated     string
		Missing       []appealsRow
		Mismatches    []appealsRow
		TotalMissing  string
		TotalVariance string
	}{
		Generated:    c.now().Format(timestampLayout),
		TotalMissing: models.FormatAmount(cmp.TotalMissingAmount()),
	}
	for _, r := range cmp.Missing() {
		data.Missing = append(data.Missing, newAppealsRow(r))
	}
	variance := decimal.Zero
	for _, r := range cmp.Mismatches() {
		data.Mismatches = append(data.Mismatches, newAppealsRow(r))
		variance = variance.Add(r.Variance)
	}
	data.TotalVariance = models.FormatAmount(variance)

	var buf bytes.Buffer
	if err := appealsTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return &Message{
		Kind:    "appeals_comparison",
		Subject: appealsSubject,
		To:      c.recipients.To,
		Cc:      c.recipients.Cc,
		Body:    buf.String(),
		HTML:    true,
	}, nil
}

var uploadTemplate = template.Must(template.New("upload").Parse(`<html>
<body>
<p>This is an automated notification from the Claims Reconciliation Tool.</p>
{{- if .Ready}}
<p><b>IMPORTANT: Both Claims and Finance departments have uploaded their files!</b></p>
<p>You can now proceed with the full reconciliation process by visiting the Claims Reconciliation Tool.</p>
{{- else}}
<p>The <b>{{.Department}} Department</b> has uploaded their file at {{.Uploaded}}.</p>
<p>Please note:</p>
<ul>
<li>Waiting for {{.Other}} Department upload.</li>
</ul>
<p>You can proceed with the reconciliation process once both uploads are available.</p>
{{- end}}
<p>This is an automated message, please do not reply.</p>
</body>
</html>
`))

type uploadData struct {
	Ready      bool
	Department string
	Other      string
	Uploaded   string
}

func (c *Composer) upload(kind, subject string, data uploadData) (*Message, error) {
	var buf bytes.Buffer
	if err := uploadTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	to := c.recipients.Uploads
	if len(to) == 0 {
		to = c.recipients.To
	}
	return &Message{Kind: kind, Subject: subject, To: to, Body: buf.String(), HTML: true}, nil
}

// DepartmentUpload announces that department uploaded at uploadedAt and that
// other is still outstanding
func (c *Composer) DepartmentUpload(department, other string, uploadedAt time.Time) (*Message, error) {
	return c.upload("department_upload", fmt.Sprintf(uploadSubject, department), uploadData{
		Department: department,
		Other:      other,
		Uploaded:   uploadedAt.Format(timestampLayout),
	})
}

// AllFilesReady announces that both departments have uploaded
func (c *Composer) AllFilesReady() (*Message, error) {
	return c.upload("all_files_ready", readySubject, uploadData{Ready: true})
}
