package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Dan9191/recipe-service/internal/config"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   sendFunc
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (s *Sender) newFollowerEmail(followed, follower *models.User) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{followed.Email}
	e.Subject = fmt.Sprintf("%s started following you", follower.Name)

	body := fmt.Sprintf("Hi %s,\n\n", followed.Name)
	body += fmt.Sprintf("%s is now following you and will see the recipes you share.\n", follower.Name)
	body += fmt.Sprintf("You now have %d followers.\n", followed.FollowersCount)
	body += "\nHappy cooking,\nRecipe Service"
	e.Text = []byte(body)
	return e
}

func (s *Sender) blockedEmail(user *models.User) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{user.Email}
	e.Subject = "Your account has been blocked"

	body := fmt.Sprintf("Hi %s,\n\n", user.Name)
	body += "Your account has been blocked by an administrator and you can no longer sign in.\n" +
		"If you believe this is a mistake, please reply to this email.\n"
	body += "\nRecipe Service"
	e.Text = []byte(body)
	return e
}

func (s *Sender) deliver(ctx context.Context, e *email.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %v: %v", e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}

// SendNewFollower tells followed that follower started following them
func (s *Sender) SendNewFollower(ctx context.Context, followed, follower *models.User) error {
	return s.deliver(ctx, s.newFollowerEmail(followed, follower))
}

// SendBlockedNotice tells user their account was blocked
func (s *Sender) SendBlockedNotice(ctx context.Context, user *models.User) error {
	return s.deliver(ctx, s.blockedEmail(user))
}
