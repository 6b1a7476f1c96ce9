package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusnet/internal/auth"
	"campusnet/internal/config"
	"campusnet/internal/docstore"
	"campusnet/internal/handlers/apiserver"
	appKafka "campusnet/internal/kafka"
	"campusnet/internal/middleware"
	appRedis "campusnet/internal/redis"
	"campusnet/internal/services"
	"campusnet/internal/storage"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("API server configuration loaded.")

	ctx := context.Background()

	// 2. Initialize the document store
	var store docstore.Client
	switch cfg.Store.Type {
	case "memory":
		store = docstore.NewMemory()
		log.Println("Using in-memory document store.")
	case "firestore":
		store, err = docstore.NewFirestore(ctx, cfg.Store.ProjectID, cfg.Store.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize Firestore: %v", err)
		}
		log.Printf("Connected to Firestore project %s.", cfg.Store.ProjectID)
	default:
		log.Fatalf("Unsupported store type: %s", cfg.Store.Type)
	}
	defer store.Close()

	// 3. Initialize the identity verifier
	var verifier auth.Verifier
	var identity auth.Identity
	switch cfg.Auth.Mode {
	case "jwt":
		verifier = auth.NewJWTVerifier(cfg.Auth.JWTSecretKey)
		log.Println("Using local JWT verifier (development mode).")
	case "firebase":
		fbAuth, err := auth.NewFirebaseAuth(ctx, cfg.Store.ProjectID, cfg.Store.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase auth: %v", err)
		}
		verifier = fbAuth
		identity = fbAuth
		log.Println("Using Firebase identity verifier.")
	default:
		log.Fatalf("Unsupported auth mode: %s", cfg.Auth.Mode)
	}
	policy := auth.Policy{AllowedDomain: cfg.Auth.AllowedDomain}

	// 4. Initialize Redis and the suspension list
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis.")
	suspensionList := appRedis.NewRedisSuspensionList(redisClient)

	// 5. Initialize the Kafka producer
	kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer kfkProducer.Close()
	log.Println("Kafka producer initialized (API server).")

	// 6. Initialize repositories
	userRepo := storage.NewDocUserRepository(store)
	eventRepo := storage.NewDocEventRepository(store)

	// 7. Initialize services
	friendService := services.NewFriendService(store, userRepo, kfkProducer, cfg.Kafka)
	userService := services.NewUserService(userRepo, friendService, identity)
	eventService := services.NewEventService(eventRepo)

	// 8. Initialize handlers
	authHandler := apiserver.NewAuthHandler(userService, identity)
	userHandler := apiserver.NewUserHandler(userService)
	friendHandler := apiserver.NewFriendHandler(friendService)
	eventHandler := apiserver.NewEventHandler(eventService)

	// 9. Set up HTTP routes
	r := mux.NewRouter()

	// 9.1 Public routes
	r.HandleFunc("/auth/forgot-password", authHandler.ForgotPasswordHandler).Methods(http.MethodPost)

	// 9.2 Authenticated routes
	authMW := middleware.Auth(verifier, policy, suspensionList)
	protected := r.PathPrefix("/").Subrouter()
	protected.Use(authMW)

	protected.HandleFunc("/me", authHandler.MeHandler).Methods(http.MethodGet)
	protected.HandleFunc("/users/me", userHandler.GetMeHandler).Methods(http.MethodGet)
	protected.HandleFunc("/users/me", userHandler.PatchMeHandler).Methods(http.MethodPatch)
	protected.HandleFunc("/users/me", userHandler.DeleteMeHandler).Methods(http.MethodDelete)
	protected.HandleFunc("/events", eventHandler.CreateEventHandler).Methods(http.MethodPost)

	friendsRouter := protected.PathPrefix("/friends").Subrouter()
	friendHandler.RegisterRoutes(friendsRouter)

	// 10. Background sweeper for expired events
	sweeperCtx, cancelSweeper := context.WithCancel(context.Background())
	defer cancelSweeper()
	go func() {
		ticker := time.NewTicker(cfg.Events.CleanupInterval)
		defer ticker.Stop()
		for {
			if _, err := eventService.CleanupExpired(sweeperCtx); err != nil {
				log.Printf("Expired event cleanup failed: %v", err)
			}
			select {
			case <-sweeperCtx.Done():
				log.Println("Expired event sweeper stopped.")
				return
			case <-ticker.C:
			}
		}
	}()

	// 11. Start the HTTP server with graceful shutdown
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	corsHandler := handlers.CORS(corsOptions...)(r)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      corsHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("API server listening on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping API server...")

	cancelSweeper()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("API server forced to shut down: %v", err)
	}

	log.Println("API server stopped.")
}
