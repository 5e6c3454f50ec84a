package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/course-enrollment/pkg/config"
	"github.com/you/course-enrollment/pkg/db"
	"github.com/you/course-enrollment/pkg/events"
	"github.com/you/course-enrollment/pkg/logx"
	"github.com/you/course-enrollment/pkg/mq"
	"github.com/you/course-enrollment/pkg/obs"
	"github.com/you/course-enrollment/services/order-service/internal/cache"
	cons "github.com/you/course-enrollment/services/order-service/internal/consumer"
	"github.com/you/course-enrollment/services/order-service/internal/payment"
	"github.com/you/course-enrollment/services/order-service/internal/repository"
	"github.com/you/course-enrollment/services/order-service/internal/service"
	"github.com/you/course-enrollment/services/order-service/internal/transport/rest"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		panic(err)
	}
	log := logx.Must(cfg.ServiceName, cfg.Env)
	defer func() { _ = log.Sync() }()

	must := func(what string, err error) {
		if err != nil {
			log.Fatal(what, zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, version, cfg.Env, cfg.OTLPEndpoint)
	must("init tracer", err)

	// gateway credentials are checked here so a missing secret stops startup
	verifier, err := payment.NewVerifier(cfg.RazorpayKeySecret)
	must("signature verifier", err)
	gateway, err := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	must("razorpay gateway", err)

	// DB
	gdb, err := db.Open(cfg.DBDriver, cfg.PGOrderDSN)
	must("open database", err)
	orders := repository.NewOrderRepo(gdb)
	students := repository.NewStudentCourseRepo(gdb)
	rosters := repository.NewCourseRosterRepo(gdb)
	must("migrate orders", orders.Migrate())
	must("migrate student courses", students.Migrate())
	must("migrate rosters", rosters.Migrate())

	var courseCache service.CourseCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, reads go to the database", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		courseCache = cache.NewStudentCourses(rdb, cfg.CourseCacheTTL)
	}

	pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.OrderExchange)
	must("rabbitmq publisher", err)
	defer pub.Close()

	orderSvc := service.NewOrderSvc(orders, gateway, pub, cfg.Currency, log.Named("orders"))
	projector := service.NewProjector(orders, students, rosters, courseCache, log.Named("projector"))
	finalizer := service.NewFinalizer(orders, verifier, projector, pub, log.Named("finalizer"))
	enrollments := service.NewEnrollmentSvc(students, rosters, courseCache, log.Named("enrollments"))

	var webhook *rest.WebhookHandler
	if cfg.RazorpayWebhookSecret != "" {
		whVerifier, err := payment.NewVerifier(cfg.RazorpayWebhookSecret)
		must("webhook verifier", err)
		capture := service.NewCaptureSvc(orders, verifier, finalizer, log.Named("capture"))
		webhook = rest.NewWebhookHandler(whVerifier, capture, cfg.FinalizeTimeout, log.Named("webhook"))
	}

	// projection retry (order.confirmed)
	projCons, err := mq.NewConsumer(cfg.RabbitURL, cfg.OrderExchange, cfg.ProjectionQueue, []string{events.RKOrderConfirmed}, 16)
	must("rabbitmq consumer", err)
	defer projCons.Close()
	must("start projection consumer", cons.NewProjectionConsumer(projector, projCons, log.Named("projection-consumer")).Run(ctx))
	log.Info("projection consumer started", zap.String("queue", cfg.ProjectionQueue))

	srv := &http.Server{
		Addr: cfg.OrderHTTPAddr,
		Handler: rest.NewRouter(rest.Deps{
			Orders:      rest.NewOrderHandler(orderSvc, finalizer, cfg.FinalizeTimeout),
			Enrollments: rest.NewEnrollmentHandler(enrollments),
			Webhook:     webhook,
			JWTSecret:   []byte(cfg.JWTSecret),
			Log:         log.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", cfg.OrderHTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	// let in-flight finalize calls finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.FinalizeTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown", zap.Error(err))
	}
}
