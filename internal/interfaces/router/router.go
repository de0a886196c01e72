package router

import (
	"context"
	"fmt"
	"time"

	claimsvc "insurledger-backend/internal/application/claims"
	custsvc "insurledger-backend/internal/application/custody"
	invsvc "insurledger-backend/internal/application/invoicing"
	notifsvc "insurledger-backend/internal/application/notifications"
	polsvc "insurledger-backend/internal/application/policies"
	setsvc "insurledger-backend/internal/application/settlements"
	"insurledger-backend/internal/config"
	"insurledger-backend/internal/infrastructure/blob"
	"insurledger-backend/internal/infrastructure/database"
	"insurledger-backend/internal/infrastructure/lock"
	claimhandler "insurledger-backend/internal/interfaces/handlers/claims"
	custhandler "insurledger-backend/internal/interfaces/handlers/custody"
	healthhandler "insurledger-backend/internal/interfaces/handlers/health"
	invhandler "insurledger-backend/internal/interfaces/handlers/invoicing"
	notifhandler "insurledger-backend/internal/interfaces/handlers/notifications"
	polhandler "insurledger-backend/internal/interfaces/handlers/policies"
	sethandler "insurledger-backend/internal/interfaces/handlers/settlements"
	"insurledger-backend/internal/middleware"
	"insurledger-backend/internal/platform/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Deps are the connections the app runs on. CreateApp builds them from
// config; tests pass SQLite, miniredis and the in-memory blob store.
type Deps struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	Blobs    blob.Store
	Registry *prometheus.Registry
	// SyncNotify delivers notifications before the request returns.
	SyncNotify bool
}

// CreateApp opens the database, Redis and the blob store named by cfg,
// migrates the schema and returns the wired app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, nil, fmt.Errorf("database url is not set for env %q", cfg.Env)
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
	}

	blobs, err := newBlobStore(context.Background(), cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	app := NewApp(cfg, Deps{DB: db, Rdb: rdb, Blobs: blobs})
	return app, db, rdb, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "memory":
		log.Warn().Msg("using in-memory blob store; documents are lost on restart")
		return blob.NewMemory(), nil
	case "supabase":
		return blob.NewSupabase(cfg.SupabaseURL, cfg.SupabaseSecretKey, cfg.SupabaseBucket), nil
	case "s3":
		s, err := blob.NewS3(ctx, cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			return nil, fmt.Errorf("s3 blob store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q", cfg.BlobBackend)
	}
}

// NewApp wires services, handlers and routes over deps.
func NewApp(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler(deps.Rdb),
		EnableTrustedProxyCheck: true,
		BodyLimit:               8 * 1024 * 1024,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.HealthMarker(deps.Rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Actor())

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		reg, gatherer = deps.Registry, deps.Registry
	}
	m := metrics.New(reg)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	var locker lock.Locker = lock.Noop{}
	if deps.Rdb != nil {
		locker = lock.NewRedisLocker(deps.Rdb, 15*time.Second)
	}
	txTimeout := cfg.TxTimeout

	sinks := notifsvc.MultiSink{&notifsvc.StoreSink{DB: deps.DB}}
	if cfg.SendinblueAPIKey != "" && cfg.NotifyEmailTo != "" {
		sinks = append(sinks, notifsvc.NewBrevoSink(cfg.SendinblueAPIKey, cfg.MailFrom, cfg.NotifyEmailTo))
	}
	emitter := &notifsvc.Emitter{Sink: sinks, Metrics: m, Async: !deps.SyncNotify}

	custody := &custsvc.Service{DB: deps.DB, TxTimeout: txTimeout, Locker: locker, Metrics: m}
	claims := &claimsvc.Service{DB: deps.DB, Custody: custody, Blobs: deps.Blobs, Notifier: emitter, Metrics: m, Locker: locker, TxTimeout: txTimeout}
	settlements := &setsvc.Service{DB: deps.DB, Blobs: deps.Blobs, Notifier: emitter, Metrics: m, Locker: locker, TxTimeout: txTimeout}
	invoicing := &invsvc.Service{DB: deps.DB, Notifier: emitter, Metrics: m, TxTimeout: txTimeout}
	policies := &polsvc.Service{DB: deps.DB, Blobs: deps.Blobs, Notifier: emitter, TxTimeout: txTimeout}
	inbox := &notifsvc.Service{DB: deps.DB}

	hh := &healthhandler.Handlers{
		Rdb:            deps.Rdb,
		DB:             &gormDBPinger{db: deps.DB},
		Policies:       policies,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.JSON)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	api := app.Group("/api/v1")

	ph := &polhandler.Handlers{Service: policies}
	api.Post("/insurers", ph.CreateInsurer)
	api.Post("/brokers", ph.CreateBroker)
	pg := api.Group("/policies")
	pg.Post("/", ph.CreatePolicy)
	pg.Get("/", ph.ListPolicies)
	pg.Get("/stats", ph.Stats)
	pg.Delete("/documents/:document_id", ph.RemoveDocument)
	pg.Get("/:policy_id", ph.GetPolicy)
	pg.Put("/:policy_id", ph.UpdatePolicy)
	pg.Delete("/:policy_id", ph.DeletePolicy)
	pg.Post("/:policy_id/documents", ph.AddDocument)

	cuh := &custhandler.Handlers{Service: custody}
	api.Post("/custodians", cuh.CreateCustodian)
	api.Get("/custodians/:custodian_id", cuh.GetCustodian)
	api.Get("/custodians/:custodian_id/assets", cuh.ListAssets)
	api.Post("/custodians/:custodian_id/assets", cuh.CreateAsset)
	api.Get("/custodians/:custodian_id/assets/:asset_id/validate", cuh.Validate)
	api.Get("/assets/:asset_id", cuh.GetAsset)
	api.Post("/assets/:asset_id/replace", cuh.ReplaceAsset)

	ch := &claimhandler.Handlers{Service: claims}
	sh := &sethandler.Handlers{Service: settlements}
	pg.Get("/:policy_id/claims", ch.ListByPolicy)
	cg := api.Group("/claims")
	cg.Post("/", ch.Create)
	cg.Get("/", ch.List)
	cg.Delete("/documents/:document_id", ch.RemoveDocument)
	cg.Get("/:claim_id", ch.Get)
	cg.Patch("/:claim_id", ch.Edit)
	cg.Delete("/:claim_id", ch.Delete)
	cg.Get("/:claim_id/history", ch.History)
	cg.Post("/:claim_id/request-documentation", ch.RequestDocumentation())
	cg.Post("/:claim_id/complete-documentation", ch.CompleteDocumentation())
	cg.Post("/:claim_id/send-to-insurer", ch.SendToInsurer())
	cg.Post("/:claim_id/repair-outcome", ch.RecordRepairOutcome())
	cg.Post("/:claim_id/reject", ch.Reject())
	cg.Post("/:claim_id/documents", ch.AddDocument)
	cg.Get("/:claim_id/documents", ch.ListDocuments)
	cg.Post("/:claim_id/settlement", sh.Settle)
	cg.Get("/:claim_id/settlement", sh.Get)
	cg.Post("/:claim_id/settlement/paid", sh.MarkPaid)

	ih := &invhandler.Handlers{Service: invoicing}
	pg.Get("/:policy_id/invoices", ih.ListByPolicy)
	pg.Get("/:policy_id/outstanding", ih.Outstanding)
	ig := api.Group("/invoices")
	ig.Post("/preview", ih.Preview)
	ig.Post("/", ih.Create)
	ig.Get("/:invoice_id", ih.Get)
	ig.Put("/:invoice_id", ih.Update)
	ig.Post("/:invoice_id/paid", ih.MarkPaid)

	nh := &notifhandler.Handlers{Service: inbox}
	api.Get("/notifications", nh.List)
	api.Post("/notifications/:notification_id/read", nh.MarkRead)

	return app
}
