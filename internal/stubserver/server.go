package stubserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shopfront/shopfront/pkg/httpmiddleware"
)

// Run wires the in-memory stores, the identity stub, and the storefront API,
// then serves both listeners until the context is cancelled.
func Run(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("api_addr", cfg.APIAddr),
		zap.String("identity_addr", cfg.IdentityAddr),
		zap.String("realm", cfg.Realm),
	)

	products := NewProductStore()
	orders := NewOrderStore()
	if cfg.Seed {
		Seed(products)
		lg.Info("Catalog seeded", zap.Int("products", len(products.List())))
	}

	identity := NewIdentity(cfg)
	api := NewHandler(identity, products, orders)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	apiMux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	apiMux.Handle("/api/", api.Routes())

	middlewares := func(h http.Handler) http.Handler {
		return httpmiddleware.Wrap(h,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(cfg.CORSOrigins),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		)
	}

	apiServer := newServer(cfg.APIAddr, middlewares(apiMux))
	identityServer := newServer(cfg.IdentityAddr, middlewares(identity.Handler()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("API listening", zap.String("addr", cfg.APIAddr))
		return serve(apiServer)
	})
	g.Go(func() error {
		lg.Info("Identity listening", zap.String("addr", cfg.IdentityAddr))
		return serve(identityServer)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		var errs []error
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, errors.Wrap(err, "api shutdown"))
		}
		if err := identityServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, errors.Wrap(err, "identity shutdown"))
		}
		if len(errs) > 0 {
			return errs[0]
		}
		return nil
	})

	return g.Wait()
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              addr,
		Handler:           handler,
	}
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen")
	}
	return nil
}
