package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"kioskcam/internal/model"
	"kioskcam/internal/repository/sqlite"
	"kioskcam/internal/service/storage"
)

func main() {
	capturesDir := flag.String("captures", "captures", "Directory containing captured stills")
	dbPath := flag.String("db", "data/captures.db", "Database path")
	flag.Parse()

	fmt.Printf("Migrating captures from %s to database %s\n", *capturesDir, *dbPath)

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewCaptureRepository(db)

	files, err := os.ReadDir(*capturesDir)
	if err != nil {
		log.Fatalf("Failed to read captures directory: %v", err)
	}

	migrated, skipped := 0, 0
	for _, file := range files {
		if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".jpg") {
			continue
		}

		exists, err := repo.Exists(file.Name())
		if err != nil {
			log.Fatalf("Failed to query database: %v", err)
		}
		if exists {
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("⚠️  Failed to get info for %s: %v", file.Name(), err)
			skipped++
			continue
		}

		// files not written by the kiosk are imported as manual captures
		timestamp, trigger, err := storage.ParseCaptureFilename(file.Name())
		if err != nil {
			timestamp, trigger = info.ModTime(), model.TriggerManual
		}

		path := filepath.Join(*capturesDir, file.Name())
		width, height, err := imageSize(path)
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		_, err = repo.Insert(&model.Capture{
			UID:       uuid.NewString(),
			Filename:  file.Name(),
			Trigger:   trigger,
			Timestamp: timestamp,
			FilePath:  path,
			FileSize:  info.Size(),
			Width:     width,
			Height:    height,
		})
		if err != nil {
			log.Printf("⚠️  Failed to insert %s: %v", file.Name(), err)
			skipped++
			continue
		}
		migrated++
	}

	fmt.Printf("✅ Successfully migrated %d captures to database\n", migrated)
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid format or errors)\n", skipped)
	}

	total, err := repo.GetTotalCount(nil)
	if err == nil {
		size, _ := repo.GetTotalSize()
		fmt.Printf("\n📊 Database Statistics:\n")
		fmt.Printf("   Total captures: %d\n", total)
		fmt.Printf("   Total size: %d bytes\n", size)
	}
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
