package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string

	CameraDevice string
	CameraWidth  int
	CameraHeight int
	CascadePath  string

	SamplingInterval time.Duration // Okres próbkowania klatek (66ms ~ 15 fps)
	CaptureTimeout   time.Duration // Jak długo ręczne zdjęcie czeka na bramkę

	FilterOutSmallFaces    bool
	MinFaceCoveragePercent float64
	EnableAutoCaptureMode  bool
	ShowDialogOnAPIErrors  bool
	ShowDebugInfo          bool
	RecognitionMaxAge      time.Duration // Po tym czasie dane rozpoznawania twarzy wygasają

	CaptureDirectory     string
	CaptureBufferLimit   int
	CaptureFlushInterval time.Duration
	DatabasePath         string
	LogDirectory         string
	JaegerAgent          string // host:port, puste = tracing wyłączony
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	// brak pliku .env nie jest błędem
	_ = godotenv.Load()

	return &Config{
		Port:                   getEnvAsInt("PORT", 8080),
		Password:               getEnv("PASSWORD", "kiosk"),
		CameraDevice:           getEnv("CAMERA_DEVICE", "0"),
		CameraWidth:            getEnvAsInt("CAMERA_WIDTH", 1920),
		CameraHeight:           getEnvAsInt("CAMERA_HEIGHT", 1080),
		CascadePath:            getEnv("CASCADE_PATH", filepath.Join(".", "data", "haarcascade_frontalface_default.xml")),
		SamplingInterval:       getEnvAsDuration("SAMPLING_INTERVAL", 66*time.Millisecond),
		CaptureTimeout:         getEnvAsDuration("CAPTURE_TIMEOUT", 250*time.Millisecond),
		FilterOutSmallFaces:    getEnvAsBool("FILTER_SMALL_FACES", false),
		MinFaceCoveragePercent: getEnvAsFloat("MIN_FACE_COVERAGE_PERCENT", 10),
		EnableAutoCaptureMode:  getEnvAsBool("AUTO_CAPTURE", true),
		ShowDialogOnAPIErrors:  getEnvAsBool("SHOW_API_ERRORS", true),
		ShowDebugInfo:          getEnvAsBool("SHOW_DEBUG_INFO", false),
		RecognitionMaxAge:      getEnvAsDuration("RECOGNITION_MAX_AGE", 5*time.Second),
		CaptureDirectory:       getEnv("CAPTURE_DIR", filepath.Join(".", "captures")),
		CaptureBufferLimit:     getEnvAsInt("CAPTURE_BUFFER_LIMIT", 10),
		CaptureFlushInterval:   getEnvAsDuration("CAPTURE_FLUSH_INTERVAL", 2*time.Second),
		DatabasePath:           getEnv("DB_PATH", filepath.Join(".", "data", "captures.db")),
		LogDirectory:           getEnv("LOG_DIR", filepath.Join(".", "logs")),
		JaegerAgent:            getEnv("JAEGER_AGENT", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("66ms") or a bare number of milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
