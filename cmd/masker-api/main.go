package main

import (
	"flag"
	"fmt"
	"log"

	httpSwagger "github.com/swaggo/http-swagger"

	"go-mask-pipeline/internal/api"
	"go-mask-pipeline/internal/store"
	"go-mask-pipeline/pkg/router"

	_ "go-mask-pipeline/docs"
)

// @title Mask Pipeline API
// @version 1.0
// @description Control plane for PHI masking runs over document collections.
// @host localhost:8080
// @BasePath /api/v1
func main() {
	addr := flag.String("addr", ":8080", "listen address")
	ledgerPath := flag.String("ledger", "masker.db", "path to the run-tracking ledger")
	flag.Parse()

	if err := store.InitDB(*ledgerPath); err != nil {
		log.Fatalf("❌ failed to open ledger: %v", err)
	}

	r := router.New()
	api.RegisterRoutes(r)
	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.WrapHandler))

	fmt.Printf("🚀 Mask pipeline API listening on %s (docs at /swagger/index.html)\n", *addr)
	r.Start(*addr)
}
