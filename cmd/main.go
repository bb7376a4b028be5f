package main

import (
	"context"
	"net/http"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/investorprops/analysis-service/internal/app"
	"github.com/investorprops/analysis-service/internal/config"
	"github.com/investorprops/analysis-service/internal/controllers"
	"github.com/investorprops/analysis-service/internal/repositories"
	"github.com/investorprops/analysis-service/internal/routes"
	"github.com/investorprops/analysis-service/internal/services"
	"github.com/investorprops/analysis-service/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize analysis-service:", err)
	}
	defer application.Close()

	cacheRepo := repositories.NewAnalysisCacheRepository(application.DB)

	cacheService := services.NewCacheService(cacheRepo)
	marketService := services.NewMarketDataService(cfg.MarketDataAPIKey, cfg.MarketDataBaseURL, cfg.MarketDataModel)
	comparablesService := services.NewComparablesService(cfg.ComparablesAPIURL, cfg.ComparablesAPIKey)
	financeService := services.NewFinanceService(services.FinanceConfig{
		DownPaymentRate:    cfg.DownPaymentRate,
		AnnualMortgageRate: cfg.AnnualMortgageRate,
		AmortizationYears:  cfg.AmortizationYears,
	})
	registry := services.NewJobRegistry()

	analysisService := services.NewAnalysisService(
		registry,
		cacheService,
		marketService,
		comparablesService,
		financeService,
	)

	analysisController := controllers.NewAnalysisController(analysisService)
	healthController := controllers.NewHealthController(application)

	router := mux.NewRouter()

	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)

	router.HandleFunc(routes.AnalysisSubmit, analysisController.SubmitAnalysisHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.JobStatus, analysisController.JobStatusHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.JobCancel, analysisController.CancelJobHandler).Methods(http.MethodDelete)

	c := cron.New()
	_, sweepErr := c.AddFunc("@every 1m", func() {
		registry.Sweep()
	})
	if sweepErr != nil {
		utils.Logger.WithError(sweepErr).Fatal("Failed to schedule job registry sweep cron")
	}

	_, purgeErr := c.AddFunc("@every 1h", func() {
		if e := cacheService.PurgeExpired(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled cache purge failed")
		}
	})
	if purgeErr != nil {
		utils.Logger.WithError(purgeErr).Fatal("Failed to schedule cache purge cron")
	}
	c.Start()

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000")
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "ngrok-skip-browser-warning"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("analysis-service failed to start:", err)
	}
}
