package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"delyva-shipping-layer/internal/application"
	"delyva-shipping-layer/internal/application/webhook_handlers"
	"delyva-shipping-layer/internal/domain"
	apiinfra "delyva-shipping-layer/internal/infrastructure/api"
	"delyva-shipping-layer/internal/infrastructure/cache"
	delyvainfra "delyva-shipping-layer/internal/infrastructure/delyva"
	"delyva-shipping-layer/internal/infrastructure/encryption"
	"delyva-shipping-layer/internal/infrastructure/highlevel"
	"delyva-shipping-layer/internal/infrastructure/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	custommiddleware "delyva-shipping-layer/internal/infrastructure/middleware"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := getenv("MONGODB_URI", "mongodb://localhost:27017")
	appURL := getenv("APP_URL", "http://localhost:8080")

	hlClientID := os.Getenv("HIGHLEVEL_CLIENT_ID")
	hlClientSecret := os.Getenv("HIGHLEVEL_CLIENT_SECRET")
	if hlClientID == "" || hlClientSecret == "" {
		logger.Fatal().Msg("HIGHLEVEL_CLIENT_ID and HIGHLEVEL_CLIENT_SECRET environment variables are required")
	}

	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey == "" {
		logger.Fatal().Msg("ENCRYPTION_KEY environment variable is required")
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(getenv("MONGODB_DATABASE", "delyva_shipping"))

	// Connect to Redis for the quote cache
	redisClient := redis.NewClient(&redis.Options{
		Addr: getenv("REDIS_ADDR", "localhost:6379"),
	})

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(encryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	integrationRepo := repository.NewMongoIntegrationRepository(db)
	shipmentRepo := repository.NewMongoShipmentRepository(db)
	quoteCache := cache.NewRedisQuoteCache(redisClient, logger)

	highlevelClient := highlevel.NewClient(highlevel.Config{
		ClientID:     hlClientID,
		ClientSecret: hlClientSecret,
		BaseURL:      getenv("HIGHLEVEL_BASE_URL", "https://services.leadconnectorhq.com"),
		OAuthURL:     getenv("HIGHLEVEL_OAUTH_URL", "https://api.msgsndr.com"),
	}, logger)

	delyvaClient := delyvainfra.NewClient(getenv("DELYVA_BASE_URL", "https://api.delyva.app"), logger)
	webhookVerifier := delyvainfra.NewWebhookVerifier(os.Getenv("DELYVA_WEBHOOK_SECRET"))

	// Initialize application services
	tokenService := application.NewTokenService(integrationRepo, highlevelClient, encryptionService, logger)

	defaultCountry := getenv("DEFAULT_COUNTRY", "MY")
	ratesService := application.NewRatesService(
		integrationRepo,
		delyvaClient,
		encryptionService,
		quoteCache,
		logger,
		defaultCountry,
	)

	carrierService := application.NewCarrierService(
		integrationRepo,
		highlevelClient,
		delyvaClient,
		tokenService,
		encryptionService,
		logger,
		appURL+"/api/shipping/rates/callback",
	)

	fulfillmentService := application.NewFulfillmentService(
		integrationRepo,
		shipmentRepo,
		highlevelClient,
		delyvaClient,
		tokenService,
		encryptionService,
		logger,
		application.FulfillmentConfig{
			DefaultOrigin: domain.Address{
				Name:     os.Getenv("STORE_NAME"),
				Phone:    os.Getenv("STORE_PHONE"),
				Email:    os.Getenv("STORE_EMAIL"),
				Address1: os.Getenv("STORE_ADDRESS1"),
				City:     os.Getenv("STORE_CITY"),
				State:    os.Getenv("STORE_STATE"),
				Postcode: os.Getenv("STORE_POSTCODE"),
				Country:  getenv("STORE_COUNTRY", defaultCountry),
			},
			DefaultServiceCode: getenv("DEFAULT_SERVICE_CODE", "JNT-NDD"),
			DefaultCountry:     defaultCountry,
		},
	)

	statusService := application.NewStatusService(
		integrationRepo,
		shipmentRepo,
		highlevelClient,
		delyvaClient,
		tokenService,
		encryptionService,
		logger,
	)

	credentialsService := application.NewCredentialsService(integrationRepo, delyvaClient, encryptionService, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := webhook_handlers.NewDispatcher(
		logger,
		webhook_handlers.NewOrderHandler(fulfillmentService, logger),
	)

	// Initialize HTTP handlers
	oauthHandler := apiinfra.NewOAuthHandler(tokenService, logger, hlClientID, appURL)
	pagesHandler := apiinfra.NewPagesHandler(logger)
	ratesHandler := apiinfra.NewRatesHandler(ratesService, logger)
	webhooksHandler := apiinfra.NewWebhooksHandler(webhookDispatcher, statusService, webhookVerifier, logger)
	credentialsHandler := apiinfra.NewCredentialsHandler(credentialsService, logger)
	carrierHandler := apiinfra.NewCarrierHandler(carrierService, logger)
	ordersHandler := apiinfra.NewOrdersHandler(tokenService, statusService, highlevelClient, shipmentRepo, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.SecurityHeadersMiddleware())
	r.Use(custommiddleware.MetricsMiddleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth install flow
	r.Get("/oauth/highlevel/redirect", oauthHandler.Redirect)
	r.Get("/oauth/callback", oauthHandler.Callback)
	r.Post("/oauth/highlevel/refresh/{locationId}", oauthHandler.Refresh)
	r.Get("/oauth/highlevel/status/{locationId}", carrierHandler.Status)
	r.Get("/install/success", pagesHandler.InstallSuccess)
	r.Get("/install/error", pagesHandler.InstallError)

	// Checkout rate callback
	r.Post("/api/shipping/rates/callback", ratesHandler.Callback)

	// Inbound webhooks
	r.Post("/api/webhooks/highlevel", webhooksHandler.HighLevelOrders)
	r.Post("/api/webhooks/delyva/status", webhooksHandler.DelyvaStatus)

	// Delyva credentials
	r.Post("/api/delyva/credentials", credentialsHandler.Save)
	r.Post("/api/delyva/credentials/test", credentialsHandler.Test)
	r.Get("/api/delyva/credentials/{locationId}", credentialsHandler.Get)
	r.Delete("/api/delyva/credentials/{locationId}", credentialsHandler.Delete)
	r.Post("/api/delyva/shipping/toggle", credentialsHandler.ToggleShipping)
	r.Get("/api/delyva/couriers/{locationId}", credentialsHandler.ListCouriers)

	// Carrier management
	r.Post("/api/carrier/register/{locationId}", carrierHandler.Register)
	r.Get("/api/carrier/info/{locationId}", carrierHandler.Info)
	r.Put("/api/carrier/update/{locationId}", carrierHandler.Update)
	r.Put("/api/carrier/deactivate/{locationId}", carrierHandler.Deactivate)
	r.Delete("/api/carrier/unregister/{locationId}", carrierHandler.Unregister)

	// Orders and tracking
	r.Get("/api/orders/{locationId}", ordersHandler.List)
	r.Get("/api/orders/{locationId}/{orderId}", ordersHandler.Get)
	r.Post("/api/tracking/sync/{locationId}/{orderId}", ordersHandler.SyncTracking)
	r.Get("/api/tracking/info/{locationId}/{orderId}", ordersHandler.TrackingInfo)

	port := getenv("PORT", "8080")
	logger.Info().Str("port", port).Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + port + "/swagger/index.html")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}
