package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cozy-triage/backend/internal/embeddings"
	"cozy-triage/backend/internal/graph"
	"cozy-triage/backend/internal/triage"
	"cozy-triage/backend/pkg/config"
	pkgerrors "cozy-triage/backend/pkg/errors"
	"cozy-triage/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting triage API server...")

	store, err := graph.NewStore(cfg)
	if err != nil {
		log.Fatal("Failed to open graph store", zap.Error(err))
	}
	defer store.Close(context.Background())

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		log.Fatal("Failed to verify Memgraph connectivity", zap.Error(err))
	}

	var cache *triage.ContextCache
	if cfg.RedisURL != "" {
		cache, err = triage.NewContextCache(cfg.RedisURL)
		if err != nil {
			log.Warn("Context cache unavailable, continuing without it", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	embedder := embeddings.NewClient(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.EmbedModelID)
	llm := triage.NewLLMClient(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.ModelID)
	pipeline := triage.NewPipeline(store, llm, embedder, cache)
	applier := triage.NewApplier(store, embedder, cache)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		// Sync an owner node; the auth layer in front of this service calls
		// it once at account creation
		api.POST("/users", func(c *gin.Context) {
			var req struct {
				ID    string `json:"id" binding:"required"`
				Email string `json:"email" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			user := graph.User{ID: req.ID, Email: req.Email, CreatedAt: time.Now()}
			if err := store.CreateUser(c.Request.Context(), user); err != nil {
				log.Error("Failed to create user", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"id": req.ID})
		})

		api.GET("/tasks", func(c *gin.Context) {
			userID := c.Query("user_id")
			if userID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
				return
			}

			tasks, err := store.ListTasks(c.Request.Context(), userID, c.Query("status"))
			if err != nil {
				log.Error("Failed to list tasks", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"tasks": tasks})
		})

		api.GET("/projects", func(c *gin.Context) {
			userID := c.Query("user_id")
			if userID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
				return
			}

			projects, err := store.ListProjects(c.Request.Context(), userID)
			if err != nil {
				log.Error("Failed to list projects", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"projects": projects})
		})

		api.GET("/areas", func(c *gin.Context) {
			userID := c.Query("user_id")
			if userID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
				return
			}

			areas, err := store.ListAreas(c.Request.Context(), userID)
			if err != nil {
				log.Error("Failed to list areas", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list areas"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"areas": areas})
		})

		// Run triage on a brain dump
		api.POST("/triage", func(c *gin.Context) {
			var req struct {
				UserID string `json:"user_id" binding:"required"`
				Text   string `json:"text"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			result, err := pipeline.RunTriage(c.Request.Context(), req.UserID, req.Text)
			if err != nil {
				if errors.Is(err, pkgerrors.ErrEmptyInput) {
					c.JSON(http.StatusBadRequest, gin.H{"error": "brain dump text cannot be empty"})
					return
				}
				log.Error("Triage run failed before session creation", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run triage"})
				return
			}

			c.JSON(http.StatusOK, gin.H{
				"session_id":  result.SessionID,
				"suggestions": result.Suggestions,
				"error":       nullableError(result),
			})
		})

		// Review a session's suggestions
		api.GET("/triage/:sessionID", func(c *gin.Context) {
			userID := c.Query("user_id")
			if userID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
				return
			}
			sessionID := c.Param("sessionID")
			reqCtx := c.Request.Context()

			sess, err := store.GetTriageSession(reqCtx, userID, sessionID)
			if err != nil {
				if graph.IsNotFound(err) {
					c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
					return
				}
				log.Error("Failed to fetch session", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch session"})
				return
			}

			suggestions, err := store.GetSuggestionsForSession(reqCtx, userID, sessionID)
			if err != nil {
				log.Error("Failed to fetch suggestions", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch suggestions"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"session": sess, "suggestions": suggestions})
		})

		// Apply owner decisions on a session's suggestions
		api.POST("/triage/:sessionID/apply", func(c *gin.Context) {
			var req struct {
				UserID    string           `json:"user_id" binding:"required"`
				Decisions []triage.Decision `json:"decisions" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			sessionID := c.Param("sessionID")
			if err := applier.Apply(c.Request.Context(), req.UserID, sessionID, req.Decisions); err != nil {
				log.Error("Failed to apply suggestions",
					zap.String("session_id", sessionID),
					zap.Error(err),
				)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply suggestions"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "applied"})
		})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func nullableError(result *triage.Result) interface{} {
	if result.Err == nil {
		return nil
	}
	return result.ErrorMessage()
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
		)
	}
}
