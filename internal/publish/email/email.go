package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/feedwire/marketbot/internal/core"
	"github.com/feedwire/marketbot/internal/publish"
	mail "github.com/wneessen/go-mail"
)

// Config controls the SMTP item publisher.
type Config struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	To                 string
	TLSMode            string
	InsecureSkipVerify bool
}

// TLSMode determines how the SMTP client should negotiate TLS.
type TLSMode string

const (
	// TLSModeAuto uses port-based defaults (implicit TLS on 465, STARTTLS otherwise).
	TLSModeAuto TLSMode = "auto"
	// TLSModeDisabled forces cleartext SMTP.
	TLSModeDisabled TLSMode = "disabled"
	// TLSModeStartTLS requires STARTTLS on the SMTP connection.
	TLSModeStartTLS TLSMode = "starttls"
	// TLSModeImplicit uses implicit TLS (SMTPS), typically on port 465.
	TLSModeImplicit TLSMode = "implicit"
)

// Publisher delivers each news item as a small HTML email. Useful as an
// alternative destination when no Telegram channel is available.
type Publisher struct {
	cfg Config
}

func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.Host == "" {
		return nil, &core.ConfigError{Field: "smtp host"}
	}
	if cfg.To == "" {
		return nil, &core.ConfigError{Field: "smtp recipient"}
	}
	if _, err := parseTLSMode(cfg.TLSMode); err != nil {
		return nil, &core.ConfigError{Field: "smtp tls mode", Err: err}
	}
	return &Publisher{cfg: cfg}, nil
}

var itemTemplate = template.Must(template.New("item").Parse(`<html><body>
{{if .Title}}<h3>{{.Title}}</h3>{{end}}
<p>{{.Text}}</p>
{{if .URL}}<p><a href="{{.URL}}">source</a></p>{{end}}
<p><em>{{.Stamp}}</em></p>
</body></html>`))

func (p *Publisher) Publish(ctx context.Context, item core.NewsItem) error {
	body, subject, err := renderItem(item)
	if err != nil {
		return &core.PublishError{ItemID: item.ID, Permanent: true, Err: err}
	}

	m := mail.NewMsg()
	from := p.cfg.From
	if from == "" {
		from = p.cfg.Username
	}
	if err := m.From(from); err != nil {
		return &core.PublishError{ItemID: item.ID, Permanent: true, Err: fmt.Errorf("invalid from address %q: %w", from, err)}
	}
	if err := m.ToFromString(p.cfg.To); err != nil {
		return &core.PublishError{ItemID: item.ID, Permanent: true, Err: fmt.Errorf("invalid to address(es) %q: %w", p.cfg.To, err)}
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextHTML, body)

	client, err := p.newClient()
	if err != nil {
		return &core.PublishError{ItemID: item.ID, Permanent: true, Err: err}
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return &core.PublishError{ItemID: item.ID, Err: fmt.Errorf("send email: %w", err)}
	}
	return nil
}

func (p *Publisher) newClient() (*mail.Client, error) {
	mode, err := parseTLSMode(p.cfg.TLSMode)
	if err != nil {
		return nil, err
	}
	if mode == TLSModeAuto {
		if p.cfg.Port == 465 {
			mode = TLSModeImplicit
		} else {
			mode = TLSModeStartTLS
		}
	}

	opts := []mail.Option{
		mail.WithPort(p.cfg.Port),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         p.cfg.Host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: p.cfg.InsecureSkipVerify,
		}),
	}
	switch mode {
	case TLSModeDisabled:
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	case TLSModeStartTLS:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case TLSModeImplicit:
		opts = append(opts, mail.WithSSL())
	}
	if p.cfg.Username != "" {
		opts = append(
			opts,
			mail.WithUsername(p.cfg.Username),
			mail.WithPassword(p.cfg.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}

	client, err := mail.NewClient(p.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

func renderItem(item core.NewsItem) (body string, subject string, err error) {
	text, err := publish.HTMLToText(item.Text)
	if err != nil {
		return "", "", fmt.Errorf("flatten item text: %w", err)
	}

	subject = item.Title
	if subject == "" {
		subject = firstLine(text)
	}
	if subject == "" {
		subject = "news update"
	}

	var builder strings.Builder
	data := struct {
		Title string
		Text  string
		URL   string
		Stamp string
	}{
		Title: item.Title,
		Text:  text,
		URL:   item.URL,
		Stamp: item.PublishedAt.Format(time.RFC1123),
	}
	if err := itemTemplate.Execute(&builder, data); err != nil {
		return "", "", fmt.Errorf("execute item template: %w", err)
	}
	return builder.String(), subject, nil
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexRune(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	if len(text) > 120 {
		text = text[:120]
	}
	return strings.TrimSpace(text)
}

func parseTLSMode(raw string) (TLSMode, error) {
	switch TLSMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TLSModeAuto:
		return TLSModeAuto, nil
	case TLSModeDisabled:
		return TLSModeDisabled, nil
	case TLSModeStartTLS:
		return TLSModeStartTLS, nil
	case TLSModeImplicit:
		return TLSModeImplicit, nil
	default:
		return "", fmt.Errorf("unsupported smtp tls mode %q", raw)
	}
}
