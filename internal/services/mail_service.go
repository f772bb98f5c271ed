package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	SiteURL  string
	Enabled  bool
}

func NewMailService() *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "http://localhost:8080"
	}

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Println("MailService disabled: Missing SMTP environment variables.")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		SiteURL:  siteURL,
		Enabled:  enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: Driftwood <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

		err := smtp.SendMail(addr, auth, s.From, to, msg)
		if err != nil {
			log.Printf("Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("Email sent to %v: %s", to, subject)
		}
	}()
}

// SendPasswordResetEmail mails a one-time reset link for the given token.
func (s *MailService) SendPasswordResetEmail(to, token string) {
	body := fmt.Sprintf(`<p>Someone requested a password reset for this address.</p>
<p><a href="%s/change-password/%s">Reset password</a></p>
<p>If this wasn't you, ignore this email. The link expires in 72 hours.</p>`, s.SiteURL, token)

	s.sendAsync([]string{to}, "Reset your Driftwood password", body)
}
