package main

import (
	"context"
	"log"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/database"
	router "github.com/IGIHOZO/E-GURA-2025-sub003/internal/http"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/logger"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/services"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/utils"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()
	config := NewConfig()

	if err := logger.Initialize(config.logLevel, config.env); err != nil {
		log.Fatalf("Logger wasn't initialized due to %s", err)
	}

	db, err := database.New(ctx, config.dsn)

	if err != nil {
		log.Fatalf("Database wasn't initialized due to %s", err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Migrations weren't run due to %s", err)
	}

	outbox, err := services.NewNotificationOutbox(services.OutboxConfig{
		URL:               config.rabbitURL,
		NotificationQueue: "egura.notifications",
		PaymentCheckQueue: "egura.payment-checks",
		DelayExchange:     "egura.delay",
		RestockQueue:      "egura.restock",
	})
	if err != nil {
		log.Fatalf("Notification outbox wasn't initialized due to %s", err)
	}

	gateway := services.NewGatewayClient(services.GatewayConfig{
		Endpoint:      config.gatewayEndpoint,
		Username:      config.gatewayUsername,
		AccountNumber: config.gatewayAccountNo,
		Secret:        config.gatewaySecret,
		CallbackURL:   config.callbackURL,
	})

	jobQueueService := services.NewJobQueueService(ctx, 100, 2)
	reconciliationService := services.NewReconciliationService(db, gateway, outbox, jobQueueService, config.restockOnFailure)
	paymentService := services.NewPaymentService(db, gateway, outbox, config.pendingVerifyAfter)

	if err := reconciliationService.StartPendingVerification(ctx); err != nil {
		log.Fatalf("Pending payment verification wasn't started due to %s", err)
	}

	// Due payment checks come back from the delay queue and run as poll jobs.
	err = outbox.ConsumePaymentChecks(ctx, func(transactionID string) {
		err := jobQueueService.Enqueue(func(ctx context.Context) {
			if _, err := reconciliationService.VerifyPayment(ctx, transactionID); err != nil {
				logger.Log.Error("scheduled payment check failed",
					zap.String("transactionID", transactionID),
					zap.Error(err),
				)
			}
		})
		if err != nil {
			logger.Log.Error("failed to enqueue scheduled payment check",
				zap.String("transactionID", transactionID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		log.Fatalf("Payment check consumer wasn't started due to %s", err)
	}

	utils.HandleTerminationProcess(func() {
		jobQueueService.Shutdown()
		outbox.Close()
		db.Close()
	})

	log.Printf("Running server on %s\n", config.endpoint)

	router.New(
		router.Config{Endpoint: config.endpoint},
		services.NewJWTService(config.authSecretKey),
		services.NewOrderService(db),
		paymentService,
		reconciliationService,
	).Run()
}
