package handler

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"intruderwatch/internal/config"
	"intruderwatch/internal/logger"
	"intruderwatch/internal/service/filter"
	"intruderwatch/internal/service/storage"
)

// ArtifactLocator finds the newest stored artifacts.
type ArtifactLocator interface {
	Latest(c filter.Category) (string, error)
	LatestCrop(label string) (string, error)
}

// LatestImageHandler serves GET /image/{category} with the newest artifact of
// that category, and /image/logo with the configured logo.
func LatestImageHandler(cfg *config.Config, locator ArtifactLocator, logger *logger.Logger) http.HandlerFunc {
	logo := LogoHandler(cfg)

	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/image/"), "/")
		if slug == "logo" {
			logo(w, r)
			return
		}

		category, ok := filter.ParseCategory(slug)
		if !ok {
			writeError(w, http.StatusNotFound, "Unknown image category "+slug)
			return
		}

		path, err := locator.Latest(category)
		if err != nil {
			if !errors.Is(err, storage.ErrNoArtifact) {
				logger.Error("Failed to look up %s image: %v", category, err)
			}
			writeError(w, http.StatusNotFound, "Image "+category.Prefix()+".jpg not found")
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path)
	}
}

// LogoHandler serves the logo file or a JSON 404.
func LogoHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(cfg.LogoPath); err != nil {
			writeError(w, http.StatusNotFound, "Logo not found")
			return
		}
		http.ServeFile(w, r, cfg.LogoPath)
	}
}

// RecentImageHandler serves the newest crop of the intruder label.
func RecentImageHandler(cfg *config.Config, locator ArtifactLocator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := locator.LatestCrop(cfg.IntruderLabel)
		if err != nil {
			if !errors.Is(err, storage.ErrNoArtifact) {
				logger.Error("Failed to look up recent crop: %v", err)
			}
			writeError(w, http.StatusNotFound, "No recent image found")
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path)
	}
}
