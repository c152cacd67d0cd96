package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/ingestion"
	"github.com/sdrf-annotator/backend/internal/storage/sqlite"
	"github.com/sdrf-annotator/backend/pkg/config"
	appLogger "github.com/sdrf-annotator/backend/pkg/logger"
)

func main() {
	dir := flag.String("dir", "", "directory of <vocabulary_type>.json dump files")
	file := flag.String("file", "", "single dump file to import")
	vocabType := flag.String("type", "", "vocabulary type for -file")
	flag.Parse()

	if *dir == "" && *file == "" {
		fmt.Fprintln(os.Stderr, "usage: vocabimport -dir <dir> | -file <dump.json> -type <vocabulary>")
		os.Exit(2)
	}
	if *file != "" && *vocabType == "" {
		fmt.Fprintln(os.Stderr, "-type is required with -file")
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

	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	importer := ingestion.NewImporter(db)

	var count int
	if *dir != "" {
		count, err = importer.ImportDirectory(*dir)
	} else {
		count, err = importer.ImportFile(*file, *vocabType)
	}
	if err != nil {
		appLogger.Fatal("Import failed", zap.Error(err))
	}

	fmt.Printf("Imported %d terms\n", count)
}
