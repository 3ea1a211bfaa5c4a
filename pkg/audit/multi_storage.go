package audit

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/kanbax/pkg/logger"
)

// MultiStorage writes to a primary storage and mirrors every write to
// secondary storages. Only the primary decides success; reads come from it.
type MultiStorage struct {
	primary Storage
	mirrors []Storage
	log     *slog.Logger
}

var _ Storage = (*MultiStorage)(nil)

// NewMultiStorage panics on a nil primary. Nil mirrors are skipped.
func NewMultiStorage(log *slog.Logger, primary Storage, mirrors ...Storage) *MultiStorage {
	if primary == nil {
		panic("audit: primary storage cannot be nil")
	}
	if log == nil {
		log = logger.Discard()
	}
	ms := &MultiStorage{primary: primary, log: log}
	for _, m := range mirrors {
		if m != nil {
			ms.mirrors = append(ms.mirrors, m)
		}
	}
	return ms
}

func (s *MultiStorage) Store(ctx context.Context, entries ...Entry) error {
	if err := s.primary.Store(ctx, entries...); err != nil {
		return err
	}
	for _, m := range s.mirrors {
		if err := m.Store(ctx, entries...); err != nil {
			s.log.WarnContext(ctx, "audit mirror write failed",
				logger.Component("audit"),
				slog.Int("entries", len(entries)),
				logger.Error(err),
			)
		}
	}
	return nil
}

func (s *MultiStorage) Query(ctx context.Context, c Criteria) ([]Entry, error) {
	return s.primary.Query(ctx, c)
}
