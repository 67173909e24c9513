package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"roomchat/internal/auth"
	"roomchat/internal/config"
	"roomchat/internal/db"
	grpcserver "roomchat/internal/grpc"
	"roomchat/internal/handlers"
	"roomchat/internal/middleware"
	"roomchat/internal/observability"
	"roomchat/internal/rabbitmq"
	"roomchat/internal/repositories"
	"roomchat/internal/services"
	"roomchat/internal/telemetry"
	"roomchat/internal/ws"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.ServiceName, cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	slog.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, "audit."+cfg.ServiceName, cfg.ServiceName, cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL, userRepo)

	hub := ws.NewHub()
	registry := ws.NewRegistry(roomRepo, userRepo)

	messageSvc := services.NewMessageService(roomRepo, messageRepo, userRepo, registry, hub, cfg.SenderCacheSize)
	history := services.NewHistoryStreamer(messageRepo, messageSvc, cfg.HistoryBatchSize, cfg.HistoryBatchDelay)
	roomSvc := services.NewRoomService(roomRepo, userRepo, messageRepo, messageSvc, history)
	accountSvc := services.NewAccountService(userRepo, authenticator, messageSvc)

	dispatcher := ws.NewDispatcher(hub, registry, messageSvc, history)
	wsHandler := ws.NewWebSocketHandler(hub, registry, dispatcher, authenticator, cfg.WSSendBuffer)

	authHandler := handlers.NewAuthHandler(accountSvc, audit)
	userHandler := handlers.NewUserHandler(accountSvc)
	roomHandler := handlers.NewRoomHandler(roomSvc, audit)

	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": registry.Online(), "rooms": hub.Rooms()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, messageSvc.SenderCache(), cfg.DebugRoutes)

	authMiddleware := middleware.AuthMiddleware(authenticator)

	api := router.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", authMiddleware, authHandler.Me)

	api.GET("/users", authMiddleware, userHandler.Search)
	api.PATCH("/users/me", authMiddleware, userHandler.UpdateAvatar)

	api.GET("/rooms", authMiddleware, roomHandler.ListRooms)
	api.POST("/rooms/private", authMiddleware, roomHandler.StartPrivate)
	api.POST("/rooms/group", authMiddleware, roomHandler.CreateGroup)
	api.GET("/rooms/:room_id/messages", authMiddleware, roomHandler.GetMessages)

	router.GET("/ws", wsHandler.Handle)

	admin := grpcserver.NewAdminServer(database)
	admin.Refresh(ctx)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		slog.Error("failed to listen for grpc", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := admin.Serve(lis); err != nil {
			slog.Error("grpc server error", "error", err)
		}
	}()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				admin.Refresh(ctx)
			}
		}
	}()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	admin.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("tracing shutdown failed", "error", err)
	}
}
