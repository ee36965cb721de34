package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Bri445/app-link-gen-res/internal/config"
)

// logBuffer is the capacity of the streamed log channel. A slow consumer
// loses streamed lines past this point, never the run itself: the complete
// audit trail is always present on the final Result.
const logBuffer = 256

// closeTimeout bounds gateway teardown so an unresponsive browser cannot
// hang the run's exit path.
const closeTimeout = 10 * time.Second

// Run is a handle to an in-flight resolution. Log entries stream on Logs
// while the run progresses; exactly one Result is delivered on Done, after
// which both channels are closed.
type Run struct {
	Logs <-chan LogEntry
	Done <-chan Result
}

// Service is the caller-facing surface. Each resolution executes on its own
// goroutine so a UI or command loop is never blocked by the polling waits
// inside the state machine. Gateways are acquired per run and released on
// every exit path.
type Service struct {
	factory GatewayFactory
	cfg     config.ResolverConfig
	logger  *zap.Logger
}

// NewService wires the service over a gateway factory.
func NewService(factory GatewayFactory, cfg config.ResolverConfig, logger *zap.Logger) *Service {
	return &Service{
		factory: factory,
		cfg:     cfg,
		logger:  logger.Named("resolver_service"),
	}
}

// Resolve starts a resolution run for startURL and returns immediately.
// There is no sharing between runs: each gets its own gateway instance.
func (s *Service) Resolve(ctx context.Context, startURL string) *Run {
	logs := make(chan LogEntry, logBuffer)
	done := make(chan Result, 1)

	go func() {
		defer close(done)
		defer close(logs)

		gw, err := s.factory.NewSession(ctx)
		if err != nil {
			// Without a working gateway nothing can proceed.
			s.logger.Error("Gateway startup failed.", zap.Error(err))
			done <- Result{
				Outcome: OutcomeFatal,
				Err:     fmt.Errorf("%w: %v", ErrGatewayStart, err),
			}
			return
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := gw.Close(closeCtx); err != nil {
				s.logger.Warn("Error releasing gateway after run.", zap.Error(err))
			}
		}()

		sink := func(entry LogEntry) {
			select {
			case logs <- entry:
			default:
				// Consumer lagging; drop the streamed copy.
			}
		}

		orch := New(gw, s.cfg, s.logger)
		done <- orch.Resolve(ctx, startURL, sink)
	}()

	return &Run{Logs: logs, Done: done}
}
