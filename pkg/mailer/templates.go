package mailer

import (
	"bytes"
	"text/template"

	"github.com/pkg/errors"
)

var messageTemplates = template.Must(template.New("mail").Parse(`
{{define "acknowledgment"}}Dear {{.UserName}},

Thank you for submitting your data request for "{{.DatasetTitle}}".

Your request is now under review. You'll receive an email notification
when there's an update on your request status.

Request ID: {{.RequestID}}
Submission Date: {{.Date}}

{{.SiteName}}
{{end}}

{{define "staff_review"}}Dear {{.StaffName}},

A data request needs your review.

Request ID: {{.RequestID}}
Researcher: {{.UserName}} ({{.UserEmail}})
Institution: {{.Institution}}
Dataset: {{.DatasetTitle}}
Project Title: {{.ProjectTitle}}
{{if .ManagerComment}}Manager Notes: {{.ManagerComment}}
{{end}}
Please review the request in the portal.

{{.SiteName}}
{{end}}

{{define "approval"}}Dear {{.UserName}},

Your request for "{{.DatasetTitle}}" has been approved.
{{if .DirectorComment}}
Director Notes: {{.DirectorComment}}
{{end}}
Approval Date: {{.Date}}
Request ID: {{.RequestID}}

You can now download the dataset from your request status page. Each
request allows up to {{.MaxDownloads}} downloads.

{{.SiteName}}
{{end}}

{{define "rejection"}}Dear {{.UserName}},

Your request for "{{.DatasetTitle}}" has been reviewed.

Status: Rejected
{{if .Reason}}Notes: {{.Reason}}
{{end}}Decision Date: {{.Date}}
Request ID: {{.RequestID}}

You may submit a new request for this dataset at any time.

{{.SiteName}}
{{end}}

{{define "status_update"}}Dear {{.UserName}},

There is an update on your data request for "{{.DatasetTitle}}".

Previous Status: {{.PreviousStatus}}
Current Status: {{.CurrentStatus}}
{{if .ManagerComment}}Reviewer Notes: {{.ManagerComment}}
{{end}}
Request ID: {{.RequestID}}

{{.SiteName}}
{{end}}

{{define "staff_fallback"}}A data request is waiting with no active {{.NeededRole}} to review it.

Request ID: {{.RequestID}}
Researcher: {{.UserName}} ({{.UserEmail}})
Dataset: {{.DatasetTitle}}

Please assign a {{.NeededRole}} in the portal.

{{.SiteName}}
{{end}}
`))

type templateData struct {
	UserName        string
	UserEmail       string
	StaffName       string
	DatasetTitle    string
	ProjectTitle    string
	Institution     string
	RequestID       int
	Date            string
	SiteName        string
	ManagerComment  string
	DirectorComment string
	Reason          string
	PreviousStatus  string
	CurrentStatus   string
	MaxDownloads    int
	NeededRole      string
}

func renderTemplate(name string, data templateData) (string, error) {
	var b bytes.Buffer
	if err := messageTemplates.ExecuteTemplate(&b, name, data); err != nil {
		return "", errors.Wrapf(err, "unable to render %s template", name)
	}

	return b.String(), nil
}
