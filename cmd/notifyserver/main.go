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
	"campusnet/internal/handlers/notifyserver"
	appKafka "campusnet/internal/kafka"
	kafkahandlers "campusnet/internal/kafka/handlers"
	"campusnet/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Notify server configuration loaded.")

	// 2. Initialize the identity verifier
	var verifier auth.Verifier
	switch cfg.Auth.Mode {
	case "jwt":
		verifier = auth.NewJWTVerifier(cfg.Auth.JWTSecretKey)
		log.Println("Using local JWT verifier (development mode).")
	case "firebase":
		fbAuth, err := auth.NewFirebaseAuth(context.Background(), cfg.Store.ProjectID, cfg.Store.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase auth: %v", err)
		}
		verifier = fbAuth
		log.Println("Using Firebase identity verifier.")
	default:
		log.Fatalf("Unsupported auth mode: %s", cfg.Auth.Mode)
	}
	policy := auth.Policy{AllowedDomain: cfg.Auth.AllowedDomain}

	// 3. Start the WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()
	log.Println("WebSocket hub started.")

	// 4. Initialize the WebSocket handler
	wsHandler := notifyserver.NewWebSocketHandler(hub, verifier, policy, cfg)

	// 5. Initialize and start the friend event consumer
	eventConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create friend event Kafka consumer: %v", err)
	}
	defer eventConsumer.Close()

	consumerLogic := kafkahandlers.NewFriendEventConsumerLogic(hub)

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()

	go func() {
		topics := []string{cfg.Kafka.FriendEventsTopic}
		log.Printf("Friend event consumer starting, topic: %s, GroupID: %s", cfg.Kafka.FriendEventsTopic, cfg.Kafka.ConsumerGroup)
		err := eventConsumer.Consume(consumerCtx, topics, cfg.Kafka.ConsumerGroup, consumerLogic.HandleFriendEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Friend event consumer error: %v", err)
		}
		log.Println("Friend event consumer goroutine stopped.")
	}()

	// 6. Start the HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.NotifyServer.WebSocketPath, wsHandler.ServeWS)

	serverAddr := fmt.Sprintf("%s:%s", cfg.NotifyServer.Host, cfg.NotifyServer.Port)
	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      mux,
		ReadTimeout:  cfg.NotifyServer.ReadTimeout,
		WriteTimeout: cfg.NotifyServer.WriteTimeout,
	}

	go func() {
		log.Printf("Notify server listening on %s, WebSocket path: %s", serverAddr, cfg.NotifyServer.WebSocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Notify server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping notify server...")

	cancelConsumer()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Notify server forced to shut down: %v", err)
	}
	log.Println("Notify server stopped.")
}
