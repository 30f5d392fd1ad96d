// Command orderctl lists and moves the caller's orders through the order
// service REST API.
//
//	orderctl list   bought|sold [STATUS]
//	orderctl count  bought|sold
//	orderctl advance bought|sold ORDER_ID ACTION
//	orderctl cancel  bought|sold ORDER_ID REASON...
//
// ORDER_SERVICE_URL, ORDER_SERVICE_TIMEOUT and ORDER_SERVICE_TOKEN configure
// the connection.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/imrishuroy/campus-orderflow/internal/auth"
	"github.com/imrishuroy/campus-orderflow/internal/client"
	"github.com/imrishuroy/campus-orderflow/internal/config"
	"github.com/imrishuroy/campus-orderflow/internal/logging"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Token == "" {
		log.Fatal("ORDER_SERVICE_TOKEN is required")
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger, err := logging.New(level)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	api := client.New(cfg, auth.StaticToken(cfg.Token), logger)
	if err := run(context.Background(), api, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "orderctl:", err)
		os.Exit(1)
	}
}
