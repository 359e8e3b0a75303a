package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/gfdmit/yatube/internal/paginator"
	"github.com/gfdmit/yatube/internal/repository"
)

// Service applies the access rules and validation of the blog on top of a
// repository. It holds no mutable state of its own and is safe for concurrent use.
type Service struct {
	repo     repository.Repository
	media    repository.Media
	pageSize int
	clock    func() time.Time
	log      *zap.Logger
}

type Option func(*Service)

// WithPageSize sets the number of posts per feed page; values below 1 are ignored.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMedia enables image uploads.
func WithMedia(m repository.Media) Option {
	return func(s *Service) { s.media = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now as the source of publication and comment times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.clock = now }
}

func New(repo repository.Repository, opts ...Option) *Service {
	svc := &Service{
		repo:     repo,
		pageSize: paginator.DefaultPageSize,
		clock:    time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *Service) PageSize() int {
	return svc.pageSize
}

// now is stored with microsecond precision, the finest both databases keep.
func (svc *Service) now() time.Time {
	return svc.clock().UTC().Truncate(time.Microsecond)
}
