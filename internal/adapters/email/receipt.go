package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"
)

// Receipt is the data shown on a membership payment receipt.
type Receipt struct {
	MemberName string
	PlanName   string
	Amount     string // formatted, e.g. "49.99"
	Method     string
	Reference  string
	PaidAt     time.Time
	StartDate  time.Time
	EndDate    time.Time
}

var receiptHTML = htmltemplate.Must(htmltemplate.New("receipt").Parse(`<p>Hi {{.MemberName}},</p>
<p>Thanks for your payment. Your <strong>{{.PlanName}}</strong> membership is active
from {{.StartDate.Format "2 Jan 2006"}} until {{.EndDate.Format "2 Jan 2006"}}.</p>
<table>
<tr><td>Amount</td><td>{{.Amount}}</td></tr>
<tr><td>Method</td><td>{{.Method}}</td></tr>
<tr><td>Reference</td><td>{{.Reference}}</td></tr>
<tr><td>Paid</td><td>{{.PaidAt.Format "2 Jan 2006 15:04"}}</td></tr>
</table>`))

var receiptText = template.Must(template.New("receipt").Parse(`Hi {{.MemberName}},

Thanks for your payment. Your {{.PlanName}} membership is active from {{.StartDate.Format "2 Jan 2006"}} until {{.EndDate.Format "2 Jan 2006"}}.

Amount:    {{.Amount}}
Method:    {{.Method}}
Reference: {{.Reference}}
Paid:      {{.PaidAt.Format "2 Jan 2006 15:04"}}
`))

// ReceiptRequest renders r into a send request addressed to `to`.
// PRE: to is a valid address
func ReceiptRequest(to string, r Receipt) (SendRequest, error) {
	var html, text bytes.Buffer
	if err := receiptHTML.Execute(&html, r); err != nil {
		return SendRequest{}, fmt.Errorf("render receipt html: %w", err)
	}
	if err := receiptText.Execute(&text, r); err != nil {
		return SendRequest{}, fmt.Errorf("render receipt text: %w", err)
	}
	return SendRequest{
		To:      []string{to},
		Subject: fmt.Sprintf("Receipt: %s membership", r.PlanName),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
