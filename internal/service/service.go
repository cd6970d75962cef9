package service

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/recipe-service/internal/auth"
	"github.com/Dan9191/recipe-service/internal/config"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/Dan9191/recipe-service/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const notifyTimeout = 30 * time.Second

// Notifier delivers account notifications
type Notifier interface {
	SendNewFollower(ctx context.Context, followed, follower *models.User) error
	SendBlockedNotice(ctx context.Context, user *models.User) error
}

// CheckoutClient opens hosted payment sessions
type CheckoutClient interface {
	CreateSession(ctx context.Context, priceID string) (*models.CheckoutSession, error)
}

// Service handles business logic
type Service struct {
	repo       repository.Repository
	log        *logrus.Logger
	tokens     *auth.TokenCodec
	bcryptCost int
	notifier   Notifier
	checkout   CheckoutClient
	pairs      *pairLocker
	wg         sync.WaitGroup
	now        func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithNotifier enables notifications
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithCheckout sets the payment gateway client
func WithCheckout(c CheckoutClient) Option {
	return func(s *Service) { s.checkout = c }
}

// NewService initializes a new service
func NewService(repo repository.Repository, log *logrus.Logger, cfg *config.Config, tokens *auth.TokenCodec, opts ...Option) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	s := &Service{
		repo:       repo,
		log:        log,
		tokens:     tokens,
		bcryptCost: cost,
		pairs:      newPairLocker(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until background notifications have finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// notify runs send in the background once the calling operation has committed.
// Failures are logged only.
func (s *Service) notify(what string, send func(ctx context.Context, n Notifier) error) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(ctx, s.notifier); err != nil {
			s.log.WithError(err).Warnf("Failed to send %s notification", what)
		}
	}()
}
