package main

import (
	"flag"
	"fmt"
	"log"

	"intruderwatch/internal/config"
	"intruderwatch/internal/logger"
	"intruderwatch/internal/repository/sqlite"
	"intruderwatch/internal/service/filter"
	"intruderwatch/internal/service/storage"

	"gocv.io/x/gocv"
)

func main() {
	cfg := config.Load()

	imagePath := flag.String("image", "", "Image file to process")
	outDir := flag.String("out", cfg.OutputDir, "Root directory for the filtered images")
	dbPath := flag.String("db", "", "Index the capture in this database (optional)")
	flag.Parse()

	if *imagePath == "" {
		flag.Usage()
		log.Fatalf("Missing -image")
	}
	cfg.OutputDir = *outDir

	img := gocv.IMRead(*imagePath, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		log.Fatalf("Failed to load %s: %v", *imagePath, filter.ErrInvalidInput)
	}

	bank, err := filter.NewBank(filter.ParamsFromConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to build filter bank: %v", err)
	}

	outputs, err := bank.Run(img)
	if err != nil {
		log.Fatalf("Failed to filter %s: %v", *imagePath, err)
	}
	defer filter.CloseAll(outputs)

	l := logger.NewLogger(cfg)
	defer l.Close()

	var writer *storage.Writer
	var captureRepo *sqlite.CaptureRepository
	if *dbPath != "" {
		db, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		captureRepo = sqlite.NewCaptureRepository(db)
		writer = storage.NewWriter(cfg, l, captureRepo,
			sqlite.NewArtifactRepository(db), sqlite.NewDetectionRepository(db))
	} else {
		writer = storage.NewWriter(cfg, l, nil, nil, nil)
	}

	source := *imagePath
	if cfg.Timestamped {
		source = ""
	}

	capture, err := writer.SaveAll(outputs, source, nil)
	if err != nil {
		log.Fatalf("Failed to save filtered images: %v", err)
	}

	for _, a := range capture.Artifacts {
		fmt.Printf("%-14s %s (%d bytes)\n", a.Category, a.FilePath, a.FileSize)
	}
	fmt.Printf("✅ Wrote %d images for %s\n", len(capture.Artifacts), *imagePath)

	if captureRepo == nil {
		return
	}
	stats, err := captureRepo.GetStats()
	if err != nil {
		log.Printf("⚠️  Failed to get stats: %v", err)
		return
	}
	fmt.Printf("\n📊 Database stats:\n")
	fmt.Printf("   Total captures: %d\n", stats.TotalCaptures)
	fmt.Printf("   Total size: %.2f MB\n", float64(stats.TotalSizeBytes)/(1024*1024))
	for category, count := range stats.PerCategory {
		fmt.Printf("   %-14s %d\n", category, count)
	}
}
