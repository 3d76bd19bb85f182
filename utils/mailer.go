package utils

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"
	"taskforge/config"
)

// SendTeamInvite emails an invitation link to a prospective team member.
func SendTeamInvite(toEmail, teamName, inviterName, token string) error {
	cfg := config.AppConfig

	link := fmt.Sprintf("%s/invites/accept?token=%s", cfg.AppBaseURL, token)

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("%s invited you to join %s", inviterName, teamName))
	m.SetBody("text/html", fmt.Sprintf(`
		<p>Hi,</p>
		<p><strong>%s</strong> has invited you to join the team <strong>%s</strong>.</p>
		<p><a href="%s">Accept the invitation</a></p>
		<p>This link expires in 7 days. If you weren't expecting this email you can ignore it.</p>
	`, inviterName, teamName, link))

	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send invite email: %w", err)
	}

	Log.WithField("email", toEmail).Info("✅ Team invite email sent")
	return nil
}
