package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/auth"
	"github.com/imrishuroy/campus-orderflow/internal/aws"
	"github.com/imrishuroy/campus-orderflow/internal/catalog"
	"github.com/imrishuroy/campus-orderflow/internal/events"
	"github.com/imrishuroy/campus-orderflow/internal/idempotency"
	"github.com/imrishuroy/campus-orderflow/internal/logging"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

// HandlerConfig groups dependencies for the order service routes.
type HandlerConfig struct {
	DynamoDBClient   aws.DynamoDBAPI
	SQSClient        aws.SQSAPI
	OrdersTable      string
	IdempotencyTable string
	ProductsTable    string
	QueueURL         string
	TTLWindow        time.Duration
	JWTSecret        string
	ShippingFee      decimal.Decimal
	Logger           *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter builds the engine with health, order and product routes.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	logger := logging.OrNop(cfg.Logger)

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/", auth.Middleware(auth.NewIssuer(cfg.JWTSecret, 0), logger))
	RegisterOrdersRoutes(api, cfg)
	RegisterProductRoutes(api, catalog.NewStore(cfg.DynamoDBClient, cfg.ProductsTable))

	return r
}

type ordersHandler struct {
	orders      *orders.Store
	idempotency *idempotency.Store
	catalog     *catalog.Store
	events      *events.Publisher
	shippingFee decimal.Decimal
	logger      *zap.Logger
	now         func() time.Time
}

func newOrdersHandler(cfg HandlerConfig) *ordersHandler {
	logger := logging.OrNop(cfg.Logger)
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	var publisher *aws.Publisher
	if cfg.SQSClient != nil {
		publisher = aws.NewPublisher(cfg.SQSClient, cfg.QueueURL)
	}

	return &ordersHandler{
		orders:      orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable),
		idempotency: idempotency.NewStore(cfg.DynamoDBClient, cfg.IdempotencyTable, cfg.TTLWindow),
		catalog:     catalog.NewStore(cfg.DynamoDBClient, cfg.ProductsTable),
		events:      events.NewPublisher(publisher, logger),
		shippingFee: cfg.ShippingFee,
		logger:      logger,
		now:         now,
	}
}
