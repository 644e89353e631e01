package feed

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
	"github.com/google/uuid"
)

type Subscription interface {
	ID() string
	// Events is closed when the subscription ends, either through Close or
	// because the transport failed; Err tells the two apart.
	Events() <-chan models.ChangeEvent
	Err() error
	Close() error
}

// Subscriber opens subscriptions for one identity.
type Subscriber interface {
	Subscribe(ctx context.Context, userID, resource string, filter models.EventFilter) (Subscription, error)
}

// source yields raw payloads until ctx is cancelled or the transport fails.
type source func(ctx context.Context) ([]byte, error)

type subscription struct {
	id      string
	events  chan models.ChangeEvent
	cancel  context.CancelFunc
	done    chan struct{}
	release func() error
	logger  logging.Logger
	fields  []any

	once     sync.Once
	closeErr error

	mu  sync.Mutex
	err error
}

// start runs the pump for next in its own goroutine. release is called
// exactly once after the pump has stopped.
func start(channel string, filter models.EventFilter, next source, release func() error, logger logging.Logger) *subscription {
	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		id:      uuid.NewString(),
		events:  make(chan models.ChangeEvent),
		cancel:  cancel,
		done:    make(chan struct{}),
		release: release,
		logger:  logger,
	}
	s.fields = []any{"subscription", s.id, "channel", channel}

	go s.pump(logging.ContextWith(ctx, s.fields...), filter, next)
	return s
}

func (s *subscription) pump(ctx context.Context, filter models.EventFilter, next source) {
	defer close(s.done)
	defer close(s.events)

	for {
		data, err := next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error(ctx, "change feed failed", "err", err)
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}

		ev, err := Decode(data)
		if err != nil {
			s.logger.Warn(ctx, "dropping change payload", "err", err)
			continue
		}
		if !filter.Allows(ev.Type) {
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (s *subscription) ID() string { return s.id }

func (s *subscription) Events() <-chan models.ChangeEvent { return s.events }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the pump, waits for it to exit and releases the transport.
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		if s.release != nil {
			s.closeErr = s.release()
		}
		s.logger.Debug(logging.ContextWith(context.Background(), s.fields...), "subscription closed")
	})
	return s.closeErr
}
