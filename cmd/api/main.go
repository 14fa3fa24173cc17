package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/app"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/api"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/config"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/model"
)

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	fitOpts := model.FitOptions{
		Tolerance: cfg.Fit.Tolerance,
		MaxIter:   cfg.Fit.MaxIter,
	}

	server := api.NewServer(app.NewAnalysisService(), fitOpts)

	internal.DefaultLogger.Info("meta-analysis API listening on :%s", cfg.Server.Port)
	if err := http.ListenAndServe(":"+cfg.Server.Port, server.Handler()); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
