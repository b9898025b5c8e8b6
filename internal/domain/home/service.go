package home

import (
	"context"
	"encoding/json"
	"log/slog"

	"horizon/internal/domain/bank"
	"horizon/internal/domain/user"
	"horizon/internal/shared/errs"
)

const Path = "/"

// PageCache stores rendered page payloads per path and viewer. Get reports
// the path generation it read; a render stores under that generation.
type PageCache interface {
	Get(ctx context.Context, path, viewer string) (payload []byte, generation int64, ok bool, err error)
	Set(ctx context.Context, path, viewer string, generation int64, payload []byte) error
}

// View is the root page payload.
type View struct {
	User  *user.User     `json:"user"`
	Banks []bank.Summary `json:"banks"`
}

type Service struct {
	banks  bank.Repository
	cache  PageCache
	logger *slog.Logger
}

func NewService(banks bank.Repository, cache PageCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{banks: banks, cache: cache, logger: logger}
}

// Home renders the root page for u, serving from the page cache when the
// root path has not been revalidated since the last render.
func (s *Service) Home(ctx context.Context, u *user.User) (*View, error) {
	const op = "home.Home"

	if u == nil {
		return nil, errs.Msg(op, errs.KindUnauthenticated, "no user")
	}

	payload, generation, ok, err := s.cache.Get(ctx, Path, u.ID)
	cacheable := err == nil
	if err != nil {
		s.logger.WarnContext(ctx, "page cache read failed", slog.String("error", err.Error()))
	} else if ok {
		var view View
		if err := json.Unmarshal(payload, &view); err == nil {
			return &view, nil
		}
	}

	accounts, err := s.banks.ListByUserID(ctx, u.ID)
	if err != nil {
		return nil, errs.E(op, errs.KindUpstream, err)
	}

	view := &View{User: u, Banks: make([]bank.Summary, 0, len(accounts))}
	for _, a := range accounts {
		view.Banks = append(view.Banks, a.Summary())
	}

	if !cacheable {
		return view, nil
	}
	if payload, err := json.Marshal(view); err == nil {
		if err := s.cache.Set(ctx, Path, u.ID, generation, payload); err != nil {
			s.logger.WarnContext(ctx, "page cache write failed", slog.String("error", err.Error()))
		}
	}

	return view, nil
}
