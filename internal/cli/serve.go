package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/declarest/declarest/internal/config"
	"github.com/declarest/declarest/internal/demo"
	"github.com/declarest/declarest/internal/forward"
)

// ServeHandler handles the serve command
type ServeHandler struct {
	logger zerolog.Logger
}

// NewServeHandler creates a new serve command handler
func NewServeHandler(logger zerolog.Logger) *ServeHandler {
	return &ServeHandler{
		logger: logger.With().Str("handler", "serve").Logger(),
	}
}

// Execute assembles the registry and serves the forwarding endpoints
// until interrupted.
func (h *ServeHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFlags(cmd.Flags())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := demo.Assemble(ctx, h.logger, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("registry initialization failed")
		return err
	}
	defer reg.Shutdown()

	handler := forward.NewHandler(h.logger, reg)
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	h.logger.Info().
		Str("listen", cfg.Listen).
		Strs("specs", reg.SpecNames()).
		Strs("groups", reg.GroupNames()).
		Msg("serving forwarding endpoints")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		h.logger.Error().Err(err).Msg("server terminated")
		return err
	}

	h.logger.Info().Msg("server stopped")
	return nil
}
