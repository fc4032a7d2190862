package router

import (
	"log"
	"net/http"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/logger"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/middlewares"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Endpoint string
}

type Router struct {
	config                Config
	jwtService            models.JWTService
	orderService          models.OrderService
	paymentService        models.PaymentService
	reconciliationService models.ReconciliationService
}

func New(
	config Config,
	jwtService models.JWTService,
	orderService models.OrderService,
	paymentService models.PaymentService,
	reconciliationService models.ReconciliationService,
) *Router {
	return &Router{
		config,
		jwtService,
		orderService,
		paymentService,
		reconciliationService,
	}
}

func (router *Router) get() chi.Router {
	r := chi.NewRouter()

	r.Use(
		middlewares.ServiceInjectorMiddleware(
			router.jwtService,
			router.orderService,
			router.paymentService,
			router.reconciliationService,
		),
		logger.RequestLogger,
		middlewares.MetricsMiddleware,
		// Checkout, order polling and the gateway callback are public; the
		// manual verification and refund surfaces need an admin token.
		middlewares.AuthMiddleware().WithExcludedPaths(
			"/api/orders",
			"/api/payments/callback",
			"/metrics",
		).Middleware,
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(middlewares.JSONMiddleware[models.OrderDraft]).Post("/orders", CreateOrder)
		r.Get("/orders/{orderID}", GetOrder)
		r.With(middlewares.JSONMiddleware[models.PaymentInitiationRequest]).Post("/orders/{orderID}/pay", InitiatePayment)

		r.Post("/payments/callback/{transactionID}", PaymentCallback)
		r.Get("/payments/verify/{transactionID}", VerifyPayment)
		r.With(middlewares.JSONMiddleware[models.RefundRequest]).Post("/payments/{paymentID}/refund", RefundPayment)
	})

	return r
}

func (router *Router) Run() {
	log.Fatal(http.ListenAndServe(router.config.Endpoint, router.get()))
}
