// Package session tracks which customer, if any, a visitor is signed in as.
// The upstream backend owns credentials and session cookies; this service
// caches the resolved identity per visitor and applies the storefront's
// forgiving logout semantics.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/royaliq/storefront/internal/upstream"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
	"github.com/royaliq/storefront/pkg/notify"
)

type authClient interface {
	Signup(ctx context.Context, params upstream.SignupParams) (*upstream.Customer, string, error)
	Login(ctx context.Context, params upstream.LoginParams) (*upstream.Customer, string, error)
	Me(ctx context.Context, session string) (*upstream.Customer, error)
	Logout(ctx context.Context, session string) error
}

// Service manages the customer identity attached to a visitor.
type Service interface {
	// Initialize resolves the customer behind an existing session token. It
	// runs at most once per visitor; failures leave the visitor anonymous
	// without surfacing an error.
	Initialize(ctx context.Context, visitorID, token string) *upstream.Customer
	Login(ctx context.Context, visitorID string, params upstream.LoginParams) (*upstream.Customer, string, error)
	Signup(ctx context.Context, visitorID string, params upstream.SignupParams) (*upstream.Customer, string, error)
	// Logout clears the cached identity even when the upstream call fails.
	Logout(ctx context.Context, visitorID, token string)
	Current(visitorID string) *upstream.Customer
}

type state struct {
	initialized bool
	customer    *upstream.Customer
}

type service struct {
	auth     authClient
	logg     *logger.Logger
	notifier notify.Notifier

	mu       sync.Mutex
	visitors map[string]*state
}

func NewService(auth authClient, logg *logger.Logger, notifier notify.Notifier) (Service, error) {
	if auth == nil {
		return nil, fmt.Errorf("session auth client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("session logger required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("session notifier required")
	}
	return &service{
		auth:     auth,
		logg:     logg,
		notifier: notifier,
		visitors: map[string]*state{},
	}, nil
}

func (s *service) Initialize(ctx context.Context, visitorID, token string) *upstream.Customer {
	if strings.TrimSpace(visitorID) == "" {
		return nil
	}

	s.mu.Lock()
	st, ok := s.visitors[visitorID]
	if ok && st.initialized {
		customer := st.customer
		s.mu.Unlock()
		return customer
	}
	s.mu.Unlock()

	var customer *upstream.Customer
	if strings.TrimSpace(token) != "" {
		resolved, err := s.auth.Me(ctx, token)
		if err != nil {
			// Stale or missing session: the visitor simply browses anonymously.
			s.logg.Debug(s.logg.WithVisitorID(ctx, visitorID), "session init found no customer")
		} else {
			customer = resolved
		}
	}

	s.mu.Lock()
	s.visitors[visitorID] = &state{initialized: true, customer: customer}
	s.mu.Unlock()
	return customer
}

func (s *service) Login(ctx context.Context, visitorID string, params upstream.LoginParams) (*upstream.Customer, string, error) {
	if err := requireVisitor(visitorID); err != nil {
		return nil, "", err
	}

	customer, token, err := s.auth.Login(ctx, params)
	if err != nil {
		s.notifier.Error(ctx, noticeMessage(err, "Login failed"))
		return nil, "", err
	}

	s.setCustomer(visitorID, customer)
	s.notifier.Success(ctx, "Welcome back!")
	s.logg.Info(s.logg.WithVisitorID(ctx, visitorID), "customer logged in")
	return customer, token, nil
}

func (s *service) Signup(ctx context.Context, visitorID string, params upstream.SignupParams) (*upstream.Customer, string, error) {
	if err := requireVisitor(visitorID); err != nil {
		return nil, "", err
	}

	customer, token, err := s.auth.Signup(ctx, params)
	if err != nil {
		s.notifier.Error(ctx, noticeMessage(err, "Signup failed"))
		return nil, "", err
	}

	s.setCustomer(visitorID, customer)
	s.notifier.Success(ctx, "Account created!")
	s.logg.Info(s.logg.WithVisitorID(ctx, visitorID), "customer signed up")
	return customer, token, nil
}

func (s *service) Logout(ctx context.Context, visitorID, token string) {
	if strings.TrimSpace(token) != "" {
		if err := s.auth.Logout(ctx, token); err != nil {
			// Optimistic: the local identity goes away regardless, so a
			// failed revocation only rates a warning.
			s.logg.Warn(s.logg.WithVisitorID(ctx, visitorID), "upstream logout failed, clearing session anyway")
		}
	}
	s.setCustomer(visitorID, nil)
	s.notifier.Success(ctx, "Logged out")
}

func (s *service) Current(visitorID string) *upstream.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.visitors[visitorID]; ok {
		return st.customer
	}
	return nil
}

func (s *service) setCustomer(visitorID string, customer *upstream.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitors[visitorID] = &state{initialized: true, customer: customer}
}

// noticeMessage prefers the upstream's own error text so the shopper sees
// "invalid phone or password" rather than a generic notice.
func noticeMessage(err error, fallback string) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return fallback
}

func requireVisitor(visitorID string) error {
	if strings.TrimSpace(visitorID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "visitor id is required")
	}
	return nil
}
