package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/athapong/pii-mcp/pkg/config"
	"github.com/athapong/pii-mcp/pkg/ingest"
	"github.com/athapong/pii-mcp/pkg/pii"
	"github.com/athapong/pii-mcp/pkg/pii/metrics"
	"github.com/athapong/pii-mcp/pkg/pii/storage"
	"github.com/athapong/pii-mcp/pkg/pipeline"
	"github.com/sirupsen/logrus"
)

var (
	inputPath  = flag.String("input", "", "Input file or directory (.json, .hocr, .html, .pdf, .txt)")
	outputDir  = flag.String("output", "redaction_results", "Directory the JSON results are written to")
	configFile = flag.String("config", "", "Path to YAML configuration file")
	useLLM     = flag.Bool("llm", false, "Run contextual validation (requires LLM_VALIDATION_ENABLED and an API key)")
	logLevel   = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	// Configure logging
	logger := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if *inputPath == "" {
		logger.Fatal("Input path must be specified")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	p, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build pipeline: %v", err)
	}
	if *useLLM && !p.ValidationAvailable() {
		logger.Warn("Contextual validation requested but LLM_VALIDATION_ENABLED is not set; results will carry a warning")
	}

	store := storage.NewJSONResultStore(*outputDir)

	files, err := readInputFiles(*inputPath)
	if err != nil {
		logger.Fatalf("Failed to read input: %v", err)
	}
	if len(files) == 0 {
		logger.Fatal("No input files found")
	}

	logger.Infof("Processing %d input files...", len(files))

	documents := make([]*pii.Document, 0, len(files))
	for _, file := range files {
		doc, err := ingest.LoadFile(file)
		if err != nil {
			logger.Errorf("Failed to load %s: %v", file, err)
			continue
		}
		documents = append(documents, doc)
	}

	ctx := context.Background()
	results, err := p.BatchProcess(ctx, documents, *useLLM)
	if err != nil {
		logger.Fatalf("Failed to process documents: %v", err)
	}

	for i, result := range results {
		if err := store.StoreResult(ctx, result); err != nil {
			logger.Errorf("Failed to store result for %s: %v", documents[i].ID, err)
			continue
		}
		logger.WithFields(logrus.Fields{
			"entities":        result.Summary.TotalEntities,
			"false_positives": result.Summary.TotalFalsePositives,
			"warnings":        len(result.Warnings),
		}).Infof("Result saved to %s", store.Path(result.DocumentID))
	}

	metrics.UpdateSystemMetrics()
}

// readInputFiles returns path itself or every supported file below it
func readInputFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && ingest.SupportedExtensions[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})

	return files, err
}
