package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	Password      string
	CameraSource  string // device index ("0"), stream URL, video file or "udp://:port"
	CameraName    string
	StaticDir     string
	LogoPath      string
	LogDirectory  string
	DatabasePath  string
	OutputDir     string // root of the per-category artifact directories
	CropDirectory string
	Timestamped   bool // name artifacts by capture time instead of source name

	ModelPath           string
	LabelsPath          string
	ModelConfidence     float64 // minimum score for a box to be reported at all
	NMSThreshold        float64
	AcceptanceThreshold float64 // known subjects below this score are treated as suspicious
	IntruderLabel       string
	KnownLabels         []string

	MedianKernel    int
	HighPassMode    string // "frequency" or "spatial"
	HighPassCutoff  float64
	EdgeMode        string // "auto" or "fixed"
	CannyLow        float64
	CannyHigh       float64
	UnsharpSigma    float64
	UnsharpKernel   int
	UnsharpStrength float64
}

// DefaultPassword is used when PASSWORD is unset; the server warns about it.
const DefaultPassword = "intruder"

// Load reads an optional .env file and builds the configuration from the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnvAsInt("PORT", 8080),
		Password:      getEnv("PASSWORD", DefaultPassword),
		CameraSource:  getEnv("CAMERA_SOURCE", "0"),
		CameraName:    getEnv("CAMERA_NAME", "cam0"),
		StaticDir:     getEnv("STATIC_DIR", "static"),
		LogoPath:      getEnv("LOGO_PATH", filepath.Join(".", "logo", "logo.jpeg")),
		LogDirectory:  getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DatabasePath:  getEnv("DB_PATH", filepath.Join(".", "data", "captures.db")),
		OutputDir:     getEnv("OUTPUT_DIR", "Filtered_Images"),
		CropDirectory: getEnv("CROP_DIR", filepath.Join(".", "crops")),
		Timestamped:   getEnvAsBool("TIMESTAMPED_NAMES", true),

		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "best.onnx")),
		LabelsPath:          getEnv("LABELS_PATH", filepath.Join(".", "models", "labels.txt")),
		ModelConfidence:     getEnvAsFloat("MODEL_CONFIDENCE", 0.6),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.2),
		AcceptanceThreshold: getEnvAsFloat("ACCEPTANCE_THRESHOLD", 0.9),
		IntruderLabel:       getEnv("INTRUDER_LABEL", "intruder"),
		KnownLabels:         getEnvAsList("KNOWN_LABELS", []string{"user", "purna"}),

		MedianKernel:    getEnvAsInt("MEDIAN_KERNEL", 5),
		HighPassMode:    getEnv("HIGHPASS_MODE", "frequency"),
		HighPassCutoff:  getEnvAsFloat("HIGHPASS_CUTOFF", 50),
		EdgeMode:        getEnv("EDGE_MODE", "auto"),
		CannyLow:        getEnvAsFloat("CANNY_LOW", 100),
		CannyHigh:       getEnvAsFloat("CANNY_HIGH", 200),
		UnsharpSigma:    getEnvAsFloat("UNSHARP_SIGMA", 1.0),
		UnsharpKernel:   getEnvAsInt("UNSHARP_KERNEL", 0),
		UnsharpStrength: getEnvAsFloat("UNSHARP_STRENGTH", 1.5),
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

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
