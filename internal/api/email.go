package api

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig holds SMTP server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// GetSMTPConfig reads SMTP configuration from environment variables
func GetSMTPConfig() (*SMTPConfig, error) {
	host := os.Getenv("SMTP_HOST")
	portStr := os.Getenv("SMTP_PORT")
	username := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST not configured")
	}

	port := 587 // Default SMTP port
	if portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
	}

	if from == "" {
		from = "noreply@dailypivot.app"
	}

	return &SMTPConfig{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
	}, nil
}

func getAppURL() string {
	if url := os.Getenv("APP_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return "http://localhost:3000"
}

type confirmationEmailData struct {
	ConfirmURL string
	Year       int
}

var confirmationTemplate = template.Must(template.New("confirm").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
	<h2>Welcome to Daily Pivot</h2>
	<p>Confirm your email address to start writing your daily entries.</p>
	<p><a href="{{.ConfirmURL}}">Confirm my email</a></p>
	<p style="color: #888; font-size: 12px;">If you didn't sign up, you can ignore this email.</p>
	<p style="color: #888; font-size: 12px;">&copy; {{.Year}} Daily Pivot</p>
</body>
</html>`))

// GenerateConfirmationEmail renders the sign-up confirmation email body.
func GenerateConfirmationEmail(token string) (string, error) {
	data := confirmationEmailData{
		ConfirmURL: fmt.Sprintf("%s/api/auth/confirm?token=%s", getAppURL(), token),
		Year:       time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return buf.String(), nil
}

// SendConfirmationEmail sends the sign-up confirmation link. When SMTP is
// not configured the link is logged instead, so local setups still work.
func SendConfirmationEmail(to, token string) error {
	htmlContent, err := GenerateConfirmationEmail(token)
	if err != nil {
		return err
	}

	config, err := GetSMTPConfig()
	if err != nil {
		log.Printf("SMTP not configured, skipping email. Confirmation link: %s/api/auth/confirm?token=%s", getAppURL(), token)
		return nil
	}

	return sendSMTPEmail(config, to, "Confirm your Daily Pivot account", htmlContent)
}

// sendSMTPEmail sends an email via SMTP
func sendSMTPEmail(config *SMTPConfig, to, subject, htmlBody string) error {
	log.Printf("[EMAIL] Sending email to %s, subject: %s", to, subject)

	message := fmt.Sprintf("From: %s\r\n", config.From)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/html; charset=UTF-8\r\n"
	message += "\r\n"
	message += htmlBody

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	var authMech smtp.Auth
	if config.Username != "" {
		authMech = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	if err := smtp.SendMail(addr, authMech, config.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
