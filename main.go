package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/controllers"
	"github.com/buildmart/marketplace-api/middleware"
	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.InitLogger(cfg)
	log.Info().Str("env", cfg.GoEnv).Msg("Starting BuildMart Marketplace API server...")

	// Connect to database
	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Auto-migrate database models
	if err := models.AutoMigrate(config.GetDB()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Msg("Database migration completed successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup := setupIntegrations(ctx, cfg)
	defer cleanup()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, middleware.EnsureValidToken(cfg))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server is running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shut down")
	}
}

// setupIntegrations connects the optional backends named in cfg and returns
// a function that releases them. Each backend is skipped when unconfigured.
func setupIntegrations(ctx context.Context, cfg *config.Config) func() {
	var closers []func() error

	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.InitS3Service(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 service")
		}
		services.InitImageService(s3Service)
		log.Info().Str("bucket", cfg.AWSS3Bucket).Msg("Product image storage enabled")
	} else {
		log.Warn().Msg("AWS_S3_BUCKET not set, product image uploads are disabled")
	}

	if cfg.RedisAddr != "" {
		cache, err := services.InitSummaryCache(ctx, cfg.RedisAddr, cfg.SummaryCacheTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize budget summary cache")
		}
		if redisCache, ok := cache.(*services.RedisSummaryCache); ok {
			closers = append(closers, redisCache.Close)
		}
		log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.SummaryCacheTTL).Msg("Budget summary cache enabled")
	}

	ledger := services.NewLedgerService(config.GetDB(), services.GetSummaryCache())
	if len(cfg.KafkaBrokers) > 0 {
		bus := services.NewKafkaEventBus(cfg.KafkaBrokers, cfg.KafkaOrderTopic, cfg.KafkaGroupID)
		bus.Subscribe(ledger.HandleOrderEvent)
		services.SetEventBus(bus)
		closers = append(closers, bus.Close)

		go func() {
			if err := bus.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Order event consumer stopped")
			}
		}()
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaOrderTopic).Msg("Order events go through Kafka")
	} else {
		bus := services.NewInProcessEventBus()
		bus.Subscribe(ledger.HandleOrderEvent)
		services.SetEventBus(bus)
	}

	return func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn().Err(err).Msg("Failed to release backend")
			}
		}
	}
}

// newRouter wires every route. authMiddleware validates the bearer token;
// tests pass the real middleware built from a test configuration.
func newRouter(cfg *config.Config, authMiddleware gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware(cfg.CORSOrigins))
	if cfg.RateLimitRPS > 0 {
		router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)
	}

	// Profile creation only needs a valid token; every other route needs a stored user
	router.POST("/users", authMiddleware, controllers.CreateUser)

	authenticated := router.Group("", authMiddleware, middleware.LoadPrincipal())

	me := authenticated.Group("/api")
	{
		me.GET("/me", controllers.GetMyProfile)
		me.PUT("/me", controllers.UpdateMyProfile)
	}

	marketplace := authenticated.Group("/marketplace")
	{
		marketplace.GET("/getProducts", controllers.GetProducts)
		marketplace.GET("/getProductByid/:id", controllers.GetProductByID)
		marketplace.POST("/placeOrder", controllers.PlaceOrder)
		marketplace.GET("/getOrders", controllers.GetMyOrders)
		marketplace.GET("/getOrderByid/:id", controllers.GetOrderByID)
		marketplace.GET("/getOrderHistory/:id", controllers.GetOrderHistory)
		marketplace.PUT("/cancelOrder/:id", controllers.CancelOrder)
		marketplace.POST("/addNewAddress", controllers.AddNewAddress)
		marketplace.GET("/getAddresses", controllers.GetAddresses)
	}

	// Any user may become a supplier; the rest of the group is supplier only
	authenticated.POST("/supplier/createProfile", controllers.CreateSupplierProfile)
	supplier := authenticated.Group("/supplier", middleware.RequireRole(models.RoleSupplier))
	{
		supplier.GET("/getProduct", controllers.GetSupplierProducts)
		supplier.POST("/createProduct", controllers.CreateProduct)
		supplier.PUT("/updateProduct/:id", controllers.UpdateProduct)
		supplier.DELETE("/deleteProduct/:id", controllers.DeleteProduct)
		supplier.POST("/uploadProductImage/:id", controllers.UploadProductImage)
		supplier.GET("/getOrders", controllers.GetSupplierOrders)
		supplier.PUT("/updateOrderStatus/:id", controllers.UpdateOrderStatus)
	}

	user := authenticated.Group("/user")
	{
		user.POST("/createProject", controllers.CreateProject)
		user.GET("/getProjects", controllers.GetProjects)
		user.GET("/getProject/:id", controllers.GetProjectByID)
		user.POST("/createTask/:id", controllers.CreateTask)
		user.PUT("/updateTask/:id", controllers.UpdateTask)
		user.GET("/getBudget/:id", controllers.GetBudget)
		user.PUT("/setBudget/:id", controllers.SetBudget)
		user.GET("/getExpenses/:id", controllers.GetExpenses)
		user.POST("/addExpense/:id", controllers.AddExpense)
		user.PUT("/updateExpense/:id", controllers.UpdateExpense)
		user.DELETE("/deleteExpense/:id", controllers.DeleteExpense)
	}

	talent := authenticated.Group("/talent")
	{
		talent.POST("/createProfile", controllers.CreateTalentProfile)
		talent.GET("/getProfiles", controllers.GetTalentProfiles)
		talent.POST("/invite/:id", controllers.SendInvite)
		talent.PUT("/respondInvite/:id", controllers.RespondInvite)
	}

	return router
}

// corsMiddleware allows the configured origins, or any origin without
// credentials when none are configured
func corsMiddleware(origins []string) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	return cors.New(corsConfig)
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "BuildMart Marketplace API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Works for both PostgreSQL and SQLite
	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"driver":  db.Dialector.Name(),
		"tables":  tables,
	})
}
