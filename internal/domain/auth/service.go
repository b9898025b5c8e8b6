// Package auth orchestrates enrollment, sign-in and session lookup across the
// identity provider, the payments rail and the user document store.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"horizon/internal/domain/events"
	"horizon/internal/domain/identity"
	"horizon/internal/domain/payments"
	"horizon/internal/domain/user"
	"horizon/internal/shared/errs"
	"horizon/internal/shared/rollback"
)

var (
	tracer         = otel.Tracer("horizon/auth")
	meter          = otel.Meter("horizon/auth")
	signupTotal, _ = meter.Int64Counter("auth.signup.total",
		metric.WithDescription("Enrollment attempts by outcome"),
	)
)

// Result is what a successful sign-up or sign-in yields. The caller owns
// delivering Session.Secret to the client.
type Result struct {
	User    *user.User
	Session *identity.Session
}

type Service struct {
	identity identity.Provider
	rail     payments.Rail
	users    user.Repository
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(
	identityProvider identity.Provider,
	rail payments.Rail,
	users user.Repository,
	publisher events.Publisher,
	logger *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		identity: identityProvider,
		rail:     rail,
		users:    users,
		events:   publisher,
		logger:   logger,
		now:      time.Now,
	}
}

// SignUp enrolls a new customer: identity account, payments customer, user
// document, then session. Completed external steps are compensated when a
// later step before the session fails.
func (s *Service) SignUp(ctx context.Context, params user.SignUpParams) (res *Result, err error) {
	const op = "auth.SignUp"

	ctx, span := tracer.Start(ctx, op)
	stack := rollback.New(s.logger)

	defer func() {
		if r := recover(); r != nil {
			err = errs.FromPanic(op, r)
		}
		outcome := "success"
		if err != nil {
			res = nil
			outcome = string(errs.KindOf(err))
			stack.Unwind(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.ErrorContext(ctx, "sign-up failed",
				slog.String("op", op),
				slog.String("kind", outcome),
				slog.String("error", err.Error()),
			)
		}
		signupTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		span.End()
	}()

	if err := params.Validate(); err != nil {
		return nil, errs.E(op, errs.KindInvalid, err)
	}

	account, err := s.identity.CreateAccount(ctx, identity.CreateAccountParams{
		Email:    params.Email,
		Password: params.Password,
		Name:     strings.TrimSpace(params.FirstName + " " + params.LastName),
	})
	if err != nil {
		return nil, errs.E(op, identityKind(err), err)
	}
	stack.Push("identity.DeleteAccount", func(ctx context.Context) error {
		return s.identity.DeleteAccount(ctx, account.ID)
	})

	customerURL, err := s.rail.CreateCustomer(ctx, payments.CustomerParams{
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		Email:       params.Email,
		Type:        "personal",
		Address1:    params.Address1,
		City:        params.City,
		State:       params.State,
		PostalCode:  params.PostalCode,
		DateOfBirth: params.DateOfBirth,
		SSN:         params.SSN,
	})
	if err != nil {
		return nil, errs.E(op, upstreamKind(err), err)
	}
	if customerURL == "" {
		return nil, errs.Msg(op, errs.KindMissingResult, "payments rail returned no customer url")
	}
	stack.Push("payments.DeactivateCustomer", func(ctx context.Context) error {
		return s.rail.DeactivateCustomer(ctx, customerURL)
	})

	created, err := s.users.Create(ctx, user.CreateParams{
		Profile:           params.Profile,
		UserID:            account.ID,
		DwollaCustomerID:  payments.ExtractCustomerID(customerURL),
		DwollaCustomerURL: customerURL,
	})
	if err != nil {
		return nil, errs.E(op, upstreamKind(err), err)
	}

	// The profile is complete from here; a session failure leaves the user
	// able to sign in later.
	stack.Discard()

	session, err := s.identity.CreateEmailPasswordSession(ctx, params.Email, params.Password)
	if err != nil {
		return nil, errs.E(op, identityKind(err), err)
	}

	s.publish(ctx, events.Event{
		Type:   events.TypeUserEnrolled,
		UserID: created.ID,
		Data: map[string]any{
			"accountId":        account.ID,
			"dwollaCustomerId": created.DwollaCustomerID,
		},
	})

	s.logger.InfoContext(ctx, "user enrolled",
		slog.String("user_id", created.ID),
		slog.String("account_id", account.ID),
	)

	return &Result{User: created, Session: session}, nil
}

// SignIn opens a session for existing credentials and loads the profile.
func (s *Service) SignIn(ctx context.Context, email, password string) (res *Result, err error) {
	const op = "auth.SignIn"

	ctx, span := tracer.Start(ctx, op)
	defer func() {
		if r := recover(); r != nil {
			err = errs.FromPanic(op, r)
		}
		if err != nil {
			res = nil
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.WarnContext(ctx, "sign-in failed",
				slog.String("kind", string(errs.KindOf(err))),
				slog.String("error", err.Error()),
			)
		}
		span.End()
	}()

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, errs.Msg(op, errs.KindInvalid, "email and password are required")
	}

	session, err := s.identity.CreateEmailPasswordSession(ctx, email, password)
	if err != nil {
		return nil, errs.E(op, identityKind(err), err)
	}

	u, err := s.users.GetByAccountID(ctx, session.AccountID)
	if err != nil {
		if derr := s.identity.DeleteSession(context.WithoutCancel(ctx), session.Secret); derr != nil {
			s.logger.WarnContext(ctx, "revoke orphan session failed", slog.String("error", derr.Error()))
		}
		return nil, errs.E(op, userKind(err), err)
	}

	return &Result{User: u, Session: session}, nil
}

// GetLoggedInUser resolves the profile for a session secret. Every failure to
// resolve a live session is KindUnauthenticated.
func (s *Service) GetLoggedInUser(ctx context.Context, secret string) (u *user.User, err error) {
	const op = "auth.GetLoggedInUser"

	defer func() {
		if r := recover(); r != nil {
			u, err = nil, errs.FromPanic(op, r)
		}
	}()

	if secret == "" {
		return nil, errs.Msg(op, errs.KindUnauthenticated, "no session")
	}

	account, err := s.identity.GetAccount(ctx, secret)
	if err != nil {
		return nil, errs.E(op, identityKind(err), err)
	}

	u, err = s.users.GetByAccountID(ctx, account.ID)
	if err != nil {
		return nil, errs.E(op, userKind(err), err)
	}
	return u, nil
}

// Logout revokes the session. An empty secret is a no-op.
func (s *Service) Logout(ctx context.Context, secret string) error {
	const op = "auth.Logout"

	if secret == "" {
		return nil
	}
	if err := s.identity.DeleteSession(ctx, secret); err != nil && !errors.Is(err, identity.ErrSessionNotFound) {
		return errs.E(op, errs.KindUpstream, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	event.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
		)
	}
}

func identityKind(err error) errs.Kind {
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		return errs.KindConflict
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrSessionNotFound):
		return errs.KindUnauthenticated
	case errors.Is(err, identity.ErrWeakPassword):
		return errs.KindInvalid
	default:
		return upstreamKind(err)
	}
}

func userKind(err error) errs.Kind {
	if errors.Is(err, user.ErrUserNotFound) {
		return errs.KindUnauthenticated
	}
	return upstreamKind(err)
}

// upstreamKind keeps an existing classification and otherwise blames the
// provider.
func upstreamKind(err error) errs.Kind {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return errs.KindUpstream
}
