package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/evaluation"
	"github.com/sdrf-annotator/backend/internal/extraction"
	"github.com/sdrf-annotator/backend/internal/ontology"
	"github.com/sdrf-annotator/backend/internal/sdrf"
	"github.com/sdrf-annotator/backend/internal/storage/sqlite"
	"github.com/sdrf-annotator/backend/pkg/config"
	appLogger "github.com/sdrf-annotator/backend/pkg/logger"
)

func main() {
	datasetPath := flag.String("dataset", "", "path to a JSON regression dataset")
	flag.Parse()

	if *datasetPath == "" {
		fmt.Fprintln(os.Stderr, "usage: evaluate -dataset <cases.json>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	data, err := os.ReadFile(*datasetPath)
	if err != nil {
		appLogger.Fatal("Failed to read dataset", zap.Error(err))
	}

	dataset, err := evaluation.LoadDatasetFromJSON(data)
	if err != nil {
		appLogger.Fatal("Failed to parse dataset", zap.Error(err))
	}

	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	store := ontology.NewStore(db)
	termCache := ontology.BuildTermCache(store, cfg.Analysis.VocabularyTypes)
	matcher := ontology.NewMatcher(termCache)
	extractor := extraction.NewExtractor(cfg.Analysis.ContextWindowChars)
	generator := sdrf.NewGenerator(cfg.Analysis.SuggestionCutoff)

	evaluator := evaluation.NewEvaluator(extractor, matcher, generator, cfg.Analysis.MinConfidence)
	report := evaluator.Run(dataset)

	fmt.Print(evaluator.GenerateReport(report))
}
