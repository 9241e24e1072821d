package report

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/servicer/parity"
)

var orgFuncs = template.FuncMap{
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
	"stamp": func(t time.Time) string { return t.Format("2006-01-02 Mon 15:04") },
	"money": func(x float64) string { return fmt.Sprintf("%.2f", x) },
	"label": bucketLabel,
	"count": func(d map[parity.Bucket]int, b parity.Bucket) int { return d[b] },
}

// OrgTemplate renders a report as an Org mode entry.
const OrgTemplate = `
* PORTFOLIO: {{date .Date}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:SOURCE:      {{if .Source}}{{.Source}}{{else}}(source?){{end}}
:AS_OF:       {{date .Date}}
:LOANS:       {{len .Rows}}
:PAYMENTS:    {{.Payments}}
:OUTSTANDING: {{.Outstanding.StringFixed 2}}
:APPLICABLE:  {{.Applicable}}
:DELINQUENT:  {{.Delinquent}}
:CREATED:     [{{stamp .Created}}]
:END:

** Aging Buckets
| Bucket   | Loans |
|----------+-------|
{{- range $b := .Buckets }}
| {{label $b}} | {{count $.Distribution $b}} |
{{- end }}

{{- if .Rows }}

** Loans
| Loan | Convention | Principal | Balance | Missed | Status | Bucket |
|------+------------+-----------+---------+--------+--------+--------|
{{- range .Rows }}
| {{.LoanID}} | {{.Convention}} | {{money .Principal}} | {{money .Balance}} | {{.Missed}} | {{.Status}} | {{if .Applicable}}{{printf "%d" .Bucket}}{{else}}-{{end}} |
{{- end }}
{{- end }}
`

type orgView struct {
	*Report
	Buckets []parity.Bucket
}

// BuildOrg renders rep with OrgTemplate.
func BuildOrg(rep *Report) ([]byte, error) {
	t, err := template.New("report").Funcs(orgFuncs).Parse(OrgTemplate)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := t.Execute(buf, orgView{Report: rep, Buckets: parity.Buckets}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteOrg renders rep to path.
func WriteOrg(rep *Report, path string) error {
	data, err := BuildOrg(rep)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
