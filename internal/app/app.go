package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/shopfront/shopfront/internal/api"
	"github.com/shopfront/shopfront/internal/auth"
	"github.com/shopfront/shopfront/internal/domain/order"
	"github.com/shopfront/shopfront/internal/domain/product"
	"github.com/shopfront/shopfront/internal/tui"
)

// Run creates all dependencies and drives the terminal UI until the user
// quits. It is the single wiring point for the client.
func Run(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("api", cfg.APIBaseURL),
		zap.String("identity", cfg.Identity.URL),
		zap.String("realm", cfg.Identity.Realm),
	)

	session := auth.NewSession(auth.Config{
		IssuerURL: cfg.Identity.URL,
		Realm:     cfg.Identity.Realm,
		ClientID:  cfg.Identity.ClientID,
	}, auth.WithLogger(lg.Named("auth")))

	client, err := api.NewClient(cfg.APIBaseURL, session,
		api.WithRefreshMargin(cfg.RefreshMargin),
		api.WithLogger(lg.Named("api")),
	)
	if err != nil {
		return errors.Wrap(err, "create api client")
	}

	ui := tui.NewApp(tui.Deps{
		Session:  session,
		Products: product.NewService(client),
		Orders:   order.NewService(client),
		Logger:   lg.Named("tui"),
	})

	program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithContext(ctx))

	// Refresh failures inside the API client route the user back to the
	// login view. The session is the only component mutating auth state.
	session.SetLoginHandler(func() {
		program.Send(tui.LoginRequiredMsg{})
	})

	if _, err := program.Run(); err != nil {
		return errors.Wrap(err, "run ui")
	}

	lg.Info("Shutting down")
	return nil
}
