package requestnet

import (
	"time"

	"github.com/vitwit/requestnet/logger"
	"github.com/vitwit/requestnet/metrics"
)

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithTimeout bounds every blocking operation, confirmation wait included.
// Zero means no bound beyond the caller's context.
func WithTimeout(t time.Duration) Option {
	return func(s *Service) {
		s.timeout = t
	}
}

// WithDefaultConfirmations sets the depth used when an operation is called
// without TxOptions.
func WithDefaultConfirmations(n uint64) Option {
	return func(s *Service) {
		s.defaultConfirmations = n
	}
}

func withCloser(c func() error) Option {
	return func(s *Service) {
		s.closers = append(s.closers, c)
	}
}
