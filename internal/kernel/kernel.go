// Package kernel assembles the storefront: it builds every service over
// the configured store, connects domain events to their listeners and
// produces the HTTP handler with the global middleware stack.
package kernel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/kirana/app/controllers"
	"github.com/shashiranjanraj/kirana/app/jobs"
	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/routes"
	"github.com/shashiranjanraj/kirana/app/services/addressbook"
	"github.com/shashiranjanraj/kirana/app/services/auth"
	"github.com/shashiranjanraj/kirana/app/services/cart"
	"github.com/shashiranjanraj/kirana/app/services/catalog"
	"github.com/shashiranjanraj/kirana/app/services/classifier"
	"github.com/shashiranjanraj/kirana/app/services/orders"
	"github.com/shashiranjanraj/kirana/app/services/payment"
	"github.com/shashiranjanraj/kirana/app/services/savedcards"
	"github.com/shashiranjanraj/kirana/app/services/wishlist"
	"github.com/shashiranjanraj/kirana/pkg/crypt"
	"github.com/shashiranjanraj/kirana/pkg/event"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/metrics"
	"github.com/shashiranjanraj/kirana/pkg/middleware"
	"github.com/shashiranjanraj/kirana/pkg/queue"
	"github.com/shashiranjanraj/kirana/pkg/reqid"
	"github.com/shashiranjanraj/kirana/pkg/router"
	"github.com/shashiranjanraj/kirana/pkg/schedule"
	"github.com/shashiranjanraj/kirana/pkg/session"
	"github.com/shashiranjanraj/kirana/pkg/sse"
	"github.com/shashiranjanraj/kirana/pkg/store"
	"github.com/shashiranjanraj/kirana/pkg/ws"
)

// Options are the tunables read from config at boot.
type Options struct {
	DeliveryFee    float64
	CatalogTTL     time.Duration
	Branding       orders.Branding
	Payment        payment.RunnerConfig
	Cipher         *crypt.Cipher
	ClassifierCron string
	RateLimit      int
}

// App holds the wired storefront.
type App struct {
	DB         store.Client
	KV         kv.Store
	Queue      *queue.Manager
	Hub        *ws.Hub
	Gateway    *payment.HostedGateway
	Runner     *payment.Runner
	Classifier *classifier.Classifier

	deps controllers.Deps
	opts Options
}

func New(db store.Client, kvs kv.Store, q *queue.Manager, opts Options) *App {
	broker := sse.NewBroker()
	gw := payment.NewHostedGateway(opts.Payment.ScriptURL)
	runner := payment.NewRunner(gw, opts.Payment, broker)

	carts := cart.NewService(kvs, db)
	book := addressbook.New(db)
	placer := orders.NewPlacer(db, opts.DeliveryFee)
	cls := classifier.New(db)
	hub := ws.NewHub()

	jobs.Register(q, cls)
	q.SetSink(queue.StoreSink{Client: db})

	return &App{
		DB:         db,
		KV:         kvs,
		Queue:      q,
		Hub:        hub,
		Gateway:    gw,
		Runner:     runner,
		Classifier: cls,
		opts:       opts,
		deps: controllers.Deps{
			Auth:       auth.New(db),
			Catalog:    catalog.New(db, opts.CatalogTTL),
			Carts:      carts,
			Addresses:  book,
			Wishlist:   wishlist.New(db, kvs),
			Cards:      savedcards.New(kvs, opts.Cipher),
			Orders:     orders.NewService(db),
			Checkout:   orders.NewCheckout(carts, book, runner, placer, opts.Branding),
			Runner:     runner,
			Callbacks:  gw.Registry,
			Classifier: cls,
			Hub:        hub,
		},
	}
}

// Start runs the websocket hub and subscribes the event listeners. It
// returns at once; everything stops with ctx.
func (a *App) Start(ctx context.Context) {
	go a.Hub.Run(ctx)

	event.Listen(orders.EventPlaced, func(ctx context.Context, payload any) {
		order, ok := payload.(models.Order)
		if !ok {
			return
		}
		msg := map[string]any{"type": orders.EventPlaced, "order": order}
		if err := a.Hub.BroadcastJSON(msg); err != nil {
			logger.WithCtx(ctx).Warn("kernel: live order broadcast failed", "order_id", order.ID, "error", err)
		}
	})

	event.Listen(catalog.EventChanged, func(ctx context.Context, payload any) {
		table, _ := payload.(string)
		if table == models.TableBanners {
			return
		}
		if err := a.Queue.Dispatch(ctx, &jobs.ReclassifyJob{Reason: table + " changed"}); err != nil {
			logger.WithCtx(ctx).Error("kernel: reclassify dispatch failed", "error", err)
		}
	})
}

// Schedule registers the periodic maintenance tasks on s.
func (a *App) Schedule(s *schedule.Scheduler) error {
	err := s.Cron(a.opts.ClassifierCron).Name("catalog:classify").WithoutOverlapping().Run(func(ctx context.Context) {
		report, err := a.Classifier.Run(ctx)
		if err != nil {
			logger.WithCtx(ctx).Error("schedule: classifier run failed", "error", err)
			return
		}
		logger.WithCtx(ctx).Info("schedule: classifier run", "updated", report.Updated, "failed", len(report.Failed))
	})
	if err != nil {
		return fmt.Errorf("kernel: classifier schedule: %w", err)
	}

	return s.Every(10).Minutes().Name("checkout:prune").Run(func(ctx context.Context) {
		if n := a.Runner.Prune(time.Hour); n > 0 {
			logger.WithCtx(ctx).Info("schedule: pruned finished checkouts", "count", n)
		}
	})
}

// Router builds the router with every API route registered.
func (a *App) Router() *router.Router {
	r := router.New()

	// Global middleware, outermost first:
	//  1. Prometheus metrics, so latency covers everything below
	//  2. Request ID, before anything logs
	//  3. Logger, which injects the request logger
	//  4. Recovery, logging panics through that logger
	//  5. Session, which gives guests a stable cart owner
	//  6. CORS
	//  7. Rate limiter
	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(session.Middleware(session.DefaultOptions()))
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	r.Use(middleware.RateLimit(a.opts.RateLimit, time.Minute))

	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/healthz", "health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	routes.RegisterAPI(r, a.deps)
	return r
}

func (a *App) Handler() http.Handler { return a.Router().Handler() }

// Shutdown waits for in-flight checkouts so none is left between payment
// and order placement.
func (a *App) Shutdown() {
	a.Runner.Shutdown()
	event.Wait()
}
