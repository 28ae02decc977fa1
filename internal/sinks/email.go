package sinks

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"elecharvest/internal/scrapers/elecweb"

	"github.com/jordan-wright/email"
)

type EmailConfig struct {
	Server       string   `json:"server" yaml:"server"`
	Port         int      `json:"port" yaml:"port"`
	EmailAddress string   `json:"email_address" yaml:"email_address"`
	Password     string   `json:"password" yaml:"password"`
	To           []string `json:"to" yaml:"to"`
}

// Email mails a summary of every result.
type Email struct {
	config EmailConfig
	send   func(mail *email.Email) error
}

func NewEmail(config EmailConfig) Email {
	e := Email{config: config}
	e.send = e.sendSmtp
	return e
}

var summaryTemplate = template.Must(template.New("summary").Parse(`<html><body>
<h3>{{.Room}} {{.Window}}</h3>
<p>Total usage: {{printf "%.2f" .Total}} kWh{{if .Partial}} (partial, failed at {{.FailedMonth}}){{end}}</p>
<table border="1" cellspacing="0" cellpadding="4">
<tr><th>Month</th><th>Records</th><th>Usage</th></tr>
{{range .Months}}<tr><td>{{.Month}}</td><td>{{.Records}}</td><td>{{printf "%.2f" .Usage}}</td></tr>
{{end}}</table>
</body></html>`))

type summaryView struct {
	Room        string
	Window      string
	Total       float64
	Partial     bool
	FailedMonth string
	Months      []elecweb.MonthSummary
}

func (e Email) compose(result *elecweb.HarvestResult) (*email.Email, error) {
	view := summaryView{
		Room:    result.Selection.String(),
		Window:  result.Window.String(),
		Total:   result.TotalUsage,
		Partial: result.Partial,
		Months:  result.Months,
	}
	if result.FailedMonth != nil {
		view.FailedMonth = result.FailedMonth.String()
	}

	var html bytes.Buffer
	err := summaryTemplate.Execute(&html, view)
	if err != nil {
		return nil, err
	}

	text := strings.Builder{}
	fmt.Fprintf(&text, "%s %s\n\n", view.Room, view.Window)
	for _, month := range result.Months {
		fmt.Fprintf(&text, "%s\t%d records\t%.2f kWh\n", month.Month, month.Records, month.Usage)
	}
	fmt.Fprintf(&text, "\nTotal usage: %.2f kWh\n", result.TotalUsage)
	if result.Partial {
		fmt.Fprintf(&text, "Partial result, harvesting failed at %s.\n", view.FailedMonth)
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Electricity Usage <%s>", e.config.EmailAddress)
	mail.To = e.config.To
	mail.Subject = fmt.Sprintf("Electricity usage %s: %.2f kWh", view.Window, result.TotalUsage)
	mail.Text = []byte(text.String())
	mail.HTML = html.Bytes()
	return mail, nil
}

func (e Email) sendSmtp(mail *email.Email) error {
	addr := fmt.Sprintf("%s:%d", e.config.Server, e.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		return mail.Send(addr, nil)
	}
	return err
}

func (e Email) Accept(ctx context.Context, result *elecweb.HarvestResult) error {
	if len(e.config.To) == 0 {
		return fmt.Errorf("email sink: no recipients")
	}
	mail, err := e.compose(result)
	if err != nil {
		return err
	}
	return e.send(mail)
}
