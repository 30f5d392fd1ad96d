package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/aws"
	"github.com/imrishuroy/campus-orderflow/internal/config"
	"github.com/imrishuroy/campus-orderflow/internal/handlers"
	"github.com/imrishuroy/campus-orderflow/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	if !cfg.RunLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	r := handlers.NewRouter(handlers.HandlerConfig{
		DynamoDBClient:   clients.DynamoDB,
		SQSClient:        clients.SQS,
		OrdersTable:      cfg.Tables.Orders,
		IdempotencyTable: cfg.Tables.Idempotency,
		ProductsTable:    cfg.Tables.Products,
		QueueURL:         cfg.QueueURL,
		TTLWindow:        cfg.IdempotencyTTL,
		JWTSecret:        cfg.JWTSecret,
		ShippingFee:      cfg.ShippingFee,
		Logger:           logger,
	})

	// RUN_LOCAL=true serves plain HTTP for development.
	if cfg.RunLocal {
		logger.Info("running local server", zap.String("addr", cfg.Addr))
		if err := r.Run(cfg.Addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
