package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athapong/pii-mcp/pkg/config"
	"github.com/athapong/pii-mcp/pkg/pipeline"
	"github.com/athapong/pii-mcp/prompts"
	"github.com/athapong/pii-mcp/tools"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	envFile := flag.String("env", ".env", "Path to environment file")
	configFile := flag.String("config", "", "Path to YAML configuration file")
	enableSSE := flag.Bool("sse", false, "Enable SSE server")
	sseAddr := flag.String("sse-addr", ":8080", "Address for SSE server to listen on")
	metricsAddr := flag.String("metrics-addr", "", "Address to expose Prometheus metrics on, disabled when empty")
	flag.Parse()

	// stdout carries the MCP protocol, logs go to stderr
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(*envFile); err != nil {
		logger.WithError(err).Warnf("Error loading env file %s", *envFile)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	p, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build detection pipeline")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"pii-mcp",
		"1.0.0",
		server.WithLogging(),
		server.WithPromptCapabilities(true),
	)

	tools.RegisterPIITools(mcpServer, p)
	prompts.RegisterRedactionPrompts(mcpServer)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Infof("Serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	// Check if SSE server should be enabled
	if *enableSSE || os.Getenv("ENABLE_SSE") == "true" {
		sseServer := server.NewSSEServer(
			mcpServer,
			server.WithBaseURL(fmt.Sprintf("http://localhost%s", *sseAddr)),
		)

		go func() {
			logger.Infof("Starting SSE server on %s", *sseAddr)
			if err := sseServer.Start(*sseAddr); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Fatal("Failed to start SSE server")
			}
		}()

		// Set up signal handling for graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		sig := <-sigCh
		logger.Infof("Received signal %v, shutting down...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := sseServer.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Error during SSE server shutdown")
		}
		logger.Info("SSE server shutdown complete")
	} else {
		if err := server.ServeStdio(mcpServer); err != nil {
			panic(fmt.Sprintf("Server error: %v", err))
		}
	}
}
