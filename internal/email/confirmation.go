package email

import (
	"fmt"
	"net/smtp"

	"eventify-payments/internal/config"
	"eventify-payments/internal/logger"
)

// Sender delivers booking confirmation mail. Delivery is best-effort: the
// reconciler never fails a webhook over a mail problem.
type Sender struct {
	cfg config.SMTPConfig
	log *logger.Logger
}

func NewSender(cfg config.SMTPConfig, log *logger.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

func (s *Sender) SendBookingConfirmation(to, name, eventTitle string, amount float64, currency string) error {
	if s.cfg.From == "" || s.cfg.Password == "" {
		s.log.Debug("EMAIL", "SMTP not configured, skipping confirmation mail")
		return nil
	}

	displayName := name
	if displayName == "" {
		displayName = "there"
	}

	message := []byte(fmt.Sprintf(
		"Subject: 🎟 Your Eventify Ticket Confirmation\r\n"+
			"MIME-version: 1.0;\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n"+
			`<div style="font-family: Arial, sans-serif; max-width: 500px; margin: auto; border: 2px dashed #FF6600; border-radius: 10px; padding: 20px; background-color: #fff9f2;">
				<div style="text-align: center;">
					<h2 style="color: #FF6600;">🎟 Booking Confirmed</h2>
					<p style="font-size: 16px; color: #555;">Hi %s, your ticket for</p>
					<div style="font-size: 22px; font-weight: bold; color: #000; background-color: #FFE0CC; padding: 10px; display: inline-block; border-radius: 8px;">
						%s
					</div>
					<p style="font-size: 16px; color: #555; margin-top: 15px;">is booked. We charged %.2f %s.</p>
					<p style="font-size: 14px; color: #888;">See your ticket in the Eventify dashboard.</p>
				</div>
			</div>`, displayName, eventTitle, amount, currency))

	auth := smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host)
	addr := s.cfg.Host + ":" + s.cfg.Port

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, message); err != nil {
		s.log.Warn("EMAIL", fmt.Sprintf("Failed to send confirmation to %s: %v", to, err))
		return err
	}

	s.log.Info("EMAIL", fmt.Sprintf("Confirmation sent to %s", to))
	return nil
}
