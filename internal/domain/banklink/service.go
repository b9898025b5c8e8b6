// Package banklink connects an aggregator item to the payments rail and
// records the resulting bank account.
package banklink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"horizon/internal/domain/aggregation"
	"horizon/internal/domain/bank"
	"horizon/internal/domain/events"
	"horizon/internal/domain/payments"
	"horizon/internal/domain/user"
	"horizon/internal/shared/errs"
	"horizon/internal/shared/rollback"
)

const (
	RootPath         = "/"
	Processor        = "dwolla"
	ExchangeComplete = "complete"
)

var (
	tracer          = otel.Tracer("horizon/banklink")
	meter           = otel.Meter("horizon/banklink")
	stepFailures, _ = meter.Int64Counter("banklink.step.failures",
		metric.WithDescription("Bank-link flow failures by step"),
	)
)

// Revalidator invalidates cached renderings of a page path.
type Revalidator interface {
	RevalidatePath(ctx context.Context, path string) error
}

// Sealer deterministically encrypts identifiers shared with other users.
type Sealer interface {
	Seal(plaintext string) (string, error)
}

type ExchangeResult struct {
	PublicTokenExchange string `json:"publicTokenExchange"`
}

type Service struct {
	aggregator  aggregation.Client
	rail        payments.Rail
	banks       bank.Repository
	sealer      Sealer
	revalidator Revalidator
	events      events.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(
	aggregator aggregation.Client,
	rail payments.Rail,
	banks bank.Repository,
	sealer Sealer,
	revalidator Revalidator,
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
		aggregator:  aggregator,
		rail:        rail,
		banks:       banks,
		sealer:      sealer,
		revalidator: revalidator,
		events:      publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateLinkToken requests a link token scoped to the user's document id.
func (s *Service) CreateLinkToken(ctx context.Context, u *user.User) (tok *aggregation.LinkToken, err error) {
	const op = "banklink.CreateLinkToken"

	ctx, span := tracer.Start(ctx, op)
	defer func() {
		if r := recover(); r != nil {
			tok, err = nil, errs.FromPanic(op, r)
		}
		s.finish(ctx, span, op, "create_link_token", err)
	}()

	if u == nil {
		return nil, errs.Msg(op, errs.KindUnauthenticated, "no user")
	}

	tok, err = s.aggregator.CreateLinkToken(ctx, aggregation.LinkTokenParams{
		ClientUserID: u.ID,
		ClientName:   u.FullName(),
		Products:     []string{"auth"},
		Language:     "en",
		CountryCodes: []string{"US"},
	})
	if err != nil {
		return nil, errs.E(op, upstreamKind(err), err)
	}
	if tok == nil || tok.Token == "" {
		return nil, errs.Msg(op, errs.KindMissingResult, "aggregator returned no link token")
	}
	return tok, nil
}

// ExchangePublicToken runs the link flow for the first account of the item
// behind publicToken. A bank account document exists afterwards only if the
// funding source was registered.
func (s *Service) ExchangePublicToken(ctx context.Context, u *user.User, publicToken string) (res *ExchangeResult, err error) {
	const op = "banklink.ExchangePublicToken"

	ctx, span := tracer.Start(ctx, op)
	stack := rollback.New(s.logger)
	step := "validate"

	defer func() {
		if r := recover(); r != nil {
			err = errs.FromPanic(op, r)
		}
		if err != nil {
			res = nil
			stack.Unwind(ctx)
		}
		s.finish(ctx, span, op, step, err)
	}()

	if u == nil {
		return nil, errs.Msg(op, errs.KindUnauthenticated, "no user")
	}
	if publicToken == "" {
		return nil, errs.Msg(op, errs.KindInvalid, "public token is required")
	}
	if u.DwollaCustomerID == "" {
		return nil, errs.Msg(op, errs.KindInvalid, "user has no payments customer")
	}

	step = "exchange_public_token"
	exchange, err := s.aggregator.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, errs.E(op, upstreamKind(err), err)
	}
	if exchange == nil || exchange.AccessToken == "" {
		return nil, errs.Msg(op, errs.KindMissingResult, "aggregator returned no access token")
	}
	stack.Push("aggregation.RemoveItem", func(ctx context.Context) error {
		return s.aggregator.RemoveItem(ctx, exchange.AccessToken)
	})

	step = "get_accounts"
	accounts, err := s.aggregator.GetAccounts(ctx, exchange.AccessToken)
	if err != nil {
		return nil, errs.E(op, upstreamKind(err), err)
	}
	if len(accounts) == 0 {
		return nil, errs.Msg(op, errs.KindMissingResult, "item has no accounts")
	}
	account := accounts[0]

	step = "create_processor_token"
	processorToken, err := s.aggregator.CreateProcessorToken(ctx, exchange.AccessToken, account.AccountID, Processor)
	if err != nil {
		return nil, errs.E(op, upstreamKind(err), err)
	}
	if processorToken == "" {
		return nil, errs.Msg(op, errs.KindMissingResult, "aggregator returned no processor token")
	}

	step = "add_funding_source"
	fundingSourceURL, err := s.rail.AddFundingSource(ctx, payments.FundingSourceParams{
		CustomerID:     u.DwollaCustomerID,
		ProcessorToken: processorToken,
		BankName:       account.Name,
	})
	if err != nil {
		return nil, errs.E(op, upstreamKind(err), err)
	}
	if fundingSourceURL == "" {
		return nil, errs.Msg(op, errs.KindMissingResult, "payments rail returned no funding source url")
	}
	stack.Push("payments.RemoveFundingSource", func(ctx context.Context) error {
		return s.rail.RemoveFundingSource(ctx, fundingSourceURL)
	})

	step = "seal_account_id"
	sharableID, err := s.sealer.Seal(account.AccountID)
	if err != nil {
		return nil, errs.E(op, errs.KindInternal, err)
	}

	step = "create_bank_account"
	created, err := s.banks.Create(ctx, bank.CreateParams{
		UserID:           u.ID,
		BankID:           exchange.ItemID,
		AccountID:        account.AccountID,
		AccessToken:      exchange.AccessToken,
		FundingSourceURL: fundingSourceURL,
		SharableID:       sharableID,
	})
	if err != nil {
		return nil, errs.E(op, upstreamKind(err), err)
	}
	stack.Push("bank.Delete", func(ctx context.Context) error {
		return s.banks.Delete(ctx, created.ID)
	})

	step = "revalidate"
	if err := s.revalidator.RevalidatePath(ctx, RootPath); err != nil {
		s.logger.WarnContext(ctx, "revalidate failed",
			slog.String("path", RootPath),
			slog.String("error", err.Error()),
		)
	}

	s.publish(ctx, events.Event{
		Type:   events.TypeBankAccountLinked,
		UserID: u.ID,
		Data: map[string]any{
			"bankAccountId": created.ID,
			"bankId":        created.BankID,
			"sharableId":    created.SharableID,
		},
	})

	s.logger.InfoContext(ctx, "bank account linked",
		slog.String("user_id", u.ID),
		slog.String("bank_account_id", created.ID),
	)

	stack.Discard()
	return &ExchangeResult{PublicTokenExchange: ExchangeComplete}, nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, op, step string, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	stepFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
	s.logger.ErrorContext(ctx, "bank link step failed",
		slog.String("op", op),
		slog.String("step", step),
		slog.String("kind", string(errs.KindOf(err))),
		slog.String("error", err.Error()),
	)
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

func upstreamKind(err error) errs.Kind {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return errs.KindUpstream
}
