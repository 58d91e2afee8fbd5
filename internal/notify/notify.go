package notify

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/estateops/estatecrm/internal/config"
	"github.com/estateops/estatecrm/internal/db"
)

// Notifier sends appointment reminders and to-do digests by email.
// With no SMTP host configured every send is a silent no-op, so the
// alert jobs can run unconditionally.
type Notifier struct {
	cfg config.NotifyConfig
}

// New creates a new Notifier.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{cfg: cfg}
}

// IsEnabled returns true when email delivery is configured.
func (n *Notifier) IsEnabled() bool {
	return n.cfg.SMTPHost != "" && n.cfg.SMTPFrom != ""
}

// SendAppointmentAlert emails the agent a reminder for an upcoming
// appointment.
func (n *Notifier) SendAppointmentAlert(agent *db.Agent, appt *db.Appointment) error {
	if !n.IsEnabled() {
		return nil
	}
	if agent == nil || agent.Email == "" {
		return fmt.Errorf("appointment %s has no agent to notify", appt.ID)
	}

	title := sanitizeForEmail(appt.Title)
	if title == "" {
		title = "Appointment"
	}
	subject := fmt.Sprintf("[EstateCRM] Upcoming: %s", title)

	var body strings.Builder
	body.WriteString(fmt.Sprintf("Hi %s,\n\n", agent.Name))
	body.WriteString(fmt.Sprintf("You have an appointment coming up: %s\n", title))
	if appt.Start != nil {
		body.WriteString(fmt.Sprintf("When: %s\n", appt.Start.Local().Format(time.RFC1123)))
	}
	if appt.Location != "" {
		body.WriteString(fmt.Sprintf("Where: %s\n", sanitizeForEmail(appt.Location)))
	}
	if notes := strings.TrimSpace(appt.Notes); notes != "" {
		body.WriteString("\n" + notes + "\n")
	}

	return n.send([]string{agent.Email}, subject, body.String())
}

// SendTodoDigest emails the agent a summary of their open to-do items.
// Nothing is sent for an empty list.
func (n *Notifier) SendTodoDigest(agent *db.Agent, todos []*db.TodoItem) error {
	if !n.IsEnabled() || len(todos) == 0 {
		return nil
	}
	if agent == nil || agent.Email == "" {
		return fmt.Errorf("to-do digest has no agent to notify")
	}

	subject := fmt.Sprintf("[EstateCRM] %d to-do item(s) due soon", len(todos))

	var body strings.Builder
	body.WriteString(fmt.Sprintf("Hi %s,\n\nThe following to-do items are due soon:\n\n", agent.Name))
	for _, todo := range todos {
		line := "- " + sanitizeForEmail(todo.Title)
		if todo.DueAt != nil {
			line += fmt.Sprintf(" (due %s)", todo.DueAt.Local().Format("02/01/2006 15:04"))
		}
		body.WriteString(line + "\n")
	}

	return n.send([]string{agent.Email}, subject, body.String())
}

func (n *Notifier) send(recipients []string, subject, body string) error {
	// Build email message with proper MIME headers
	to := strings.Join(recipients, ", ")
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		n.cfg.SMTPFrom, to, subject, body)

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)

	var auth smtp.Auth
	if n.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", n.cfg.SMTPUsername, n.cfg.SMTPPassword, n.cfg.SMTPHost)
	}

	var err error
	if n.cfg.SMTPTLS {
		err = n.sendTLS(addr, auth, n.cfg.SMTPFrom, recipients, []byte(msg))
	} else {
		err = smtp.SendMail(addr, auth, n.cfg.SMTPFrom, recipients, []byte(msg))
	}
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	log.Printf("[Notify] Email sent to %d recipient(s): %s", len(recipients), subject)
	return nil
}

// sendTLS sends email over implicit TLS (for port 465).
func (n *Notifier) sendTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: n.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("dial TLS: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, n.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("rcpt to %s: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return client.Quit()
}

// sanitizeForEmail removes characters that could be used for email header injection.
func sanitizeForEmail(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
