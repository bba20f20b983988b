package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Toast is a transient message. It carries nothing back into the task list.
type Toast struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Notifier holds at most one toast. A newer toast replaces the current one
// immediately; a sweeper goroutine drops it once it expires.
type Notifier struct {
	mu       sync.Mutex
	current  *Toast
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func NewNotifier(ttl time.Duration, logger *zap.Logger) *Notifier {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := ttl / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return &Notifier{
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

func (n *Notifier) Start(ctx context.Context) {
	n.logger.Debug("Starting toast sweeper", zap.Duration("ttl", n.ttl))

	n.wg.Add(1)
	go n.sweep(ctx)
}

func (n *Notifier) Stop() {
	n.once.Do(func() {
		close(n.stop)
	})
	n.wg.Wait()
	n.logger.Debug("Toast sweeper stopped")
}

// Show replaces whatever toast is currently visible.
func (n *Notifier) Show(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.current = &Toast{Message: message, ExpiresAt: n.now().Add(n.ttl)}
}

// Current returns the visible toast, if it has not expired.
func (n *Notifier) Current() (Toast, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil || !n.now().Before(n.current.ExpiresAt) {
		return Toast{}, false
	}
	return *n.current, true
}

func (n *Notifier) sweep(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.expire()
		}
	}
}

func (n *Notifier) expire() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current != nil && !n.now().Before(n.current.ExpiresAt) {
		n.logger.Debug("Toast expired", zap.String("message", n.current.Message))
		n.current = nil
	}
}
