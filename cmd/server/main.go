package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/btcpay-storefront/internal/adapter/btcpay"
	"github.com/example/btcpay-storefront/internal/adapter/catalog"
	"github.com/example/btcpay-storefront/internal/adapter/httpapi"
	"github.com/example/btcpay-storefront/internal/adapter/natsstan"
	"github.com/example/btcpay-storefront/internal/adapter/store"
	"github.com/example/btcpay-storefront/internal/config"
	"github.com/example/btcpay-storefront/internal/domain"
	"github.com/example/btcpay-storefront/internal/signature"
	"github.com/example/btcpay-storefront/internal/usecase"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	orderStore, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer cleanup()

	verifier := signature.New(cfg.BTCPayWebhookSecret)
	if verifier.Insecure() {
		log.Printf("WARNING: BTCPAY_WEBHOOK_SECRET is not set, webhook signatures are NOT verified")
	}

	var publisher domain.StatusPublisher
	if cfg.StanURL != "" {
		p := &natsstan.Publisher{
			ClusterID: cfg.StanClusterID,
			ClientID:  cfg.StanClientID,
			URL:       cfg.StanURL,
			Subject:   cfg.StanSubject,
		}
		if err := p.Connect(); err != nil {
			log.Printf("stan connect: %v, status publishing disabled", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	issuer := btcpay.NewClient(cfg.BTCPayURL, cfg.BTCPayAPIKey, cfg.BTCPayStoreID, cfg.PublicBaseURL)
	cat := catalog.NewStatic()

	srv := httpapi.NewServer(
		usecase.CreateOrder{Store: orderStore, Catalog: cat, Publisher: publisher},
		usecase.PayOrder{Store: orderStore, Issuer: issuer, Publisher: publisher},
		usecase.GetOrder{Store: orderStore},
		usecase.ReconcileEvent{Store: orderStore, Publisher: publisher},
		verifier,
	)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router}
	go func() {
		log.Printf("http listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpSrv.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg config.Config) (domain.OrderStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Printf("using in-memory order store, orders are lost on restart")
		return store.NewMemoryOrderStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store.NewPostgresOrderStore(pool), pool.Close, nil
}
