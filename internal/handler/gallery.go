package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"intruderwatch/internal/config"
	"intruderwatch/internal/dto"
	"intruderwatch/internal/logger"
	"intruderwatch/internal/model"
	"intruderwatch/internal/repository"
	"intruderwatch/internal/service/storage"
)

// GetCapturesHandler returns a filtered, paginated list of captures from the database.
func GetCapturesHandler(cfg *config.Config, logger *logger.Logger, captureRepo repository.CaptureRepository,
	artifactRepo repository.ArtifactRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &model.CaptureFilter{
			Camera:    q.Get("camera"),
			Label:     q.Get("label"),
			StartDate: parseDate(q.Get("dateAfter")),
			EndDate:   parseDate(q.Get("dateBefore")),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		captures, err := captureRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying captures from database: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		totalCount, err := captureRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting captures: %v", err)
			totalCount = len(captures)
		}

		totalSize, err := artifactRepo.GetTotalSize()
		if err != nil {
			logger.Error("Error getting artifact size: %v", err)
			totalSize = 0
		}

		infos := make([]dto.CaptureInfo, 0, len(captures))
		for _, c := range captures {
			info := dto.CaptureInfo{
				UUID:      c.UUID,
				Date:      c.Timestamp,
				TimeOfDay: c.Timestamp,
				Camera:    c.Camera,
				Labels:    []string{},
				Artifacts: map[string]string{},
			}

			labels, err := detectionRepo.GetLabelsByCaptureID(c.ID)
			if err != nil {
				logger.Error("Error getting labels for capture %d: %v", c.ID, err)
			} else if labels != nil {
				info.Labels = labels
			}

			artifacts, err := artifactRepo.GetByCaptureID(c.ID)
			if err != nil {
				logger.Error("Error getting artifacts for capture %d: %v", c.ID, err)
			}
			for _, a := range artifacts {
				info.Artifacts[a.Category] = artifactURL(c.UUID, a.Category)
			}

			infos = append(infos, info)
		}

		data := dto.CapturesData{
			Captures:    infos,
			OutputDir:   cfg.OutputDir,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		if err := writeJSON(w, http.StatusOK, data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ArtifactCleaner removes every stored artifact and its index.
type ArtifactCleaner interface {
	Clear() error
}

// ClearCapturesHandler deletes all artifacts and crops from disk and clears the database.
func ClearCapturesHandler(cleaner ArtifactCleaner, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		if err := cleaner.Clear(); err != nil {
			logger.Error("Error clearing captures: %v", err)
			writeError(w, http.StatusInternalServerError, "Unable to clear captures")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// artifactURL is where the gallery fetches one artifact of a capture.
func artifactURL(uuid, category string) string {
	q := url.Values{"uuid": {uuid}, "category": {category}}
	return "/api/captures/view?" + q.Encode()
}

// CaptureStore looks up and deletes indexed captures.
type CaptureStore interface {
	Capture(uuid string) (*model.Capture, error)
	DeleteCapture(uuid string) error
}

// ViewCaptureHandler serves one artifact file of a capture.
func ViewCaptureHandler(store CaptureStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.URL.Query().Get("uuid")
		category := r.URL.Query().Get("category")
		if uuid == "" || category == "" {
			writeError(w, http.StatusBadRequest, "uuid and category are required")
			return
		}

		capture, err := store.Capture(uuid)
		if err != nil {
			if errors.Is(err, storage.ErrNoCapture) {
				writeError(w, http.StatusNotFound, "Capture "+uuid+" not found")
				return
			}
			logger.Error("Error loading capture %s: %v", uuid, err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		for _, a := range capture.Artifacts {
			if a.Category == category {
				w.Header().Set("Cache-Control", "max-age=86400")
				http.ServeFile(w, r, a.FilePath)
				return
			}
		}
		writeError(w, http.StatusNotFound, "Image "+category+" not found")
	}
}

// DeleteCaptureHandler removes one capture's files and index entry.
func DeleteCaptureHandler(store CaptureStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		uuid := r.URL.Query().Get("uuid")
		if uuid == "" {
			writeError(w, http.StatusBadRequest, "uuid is required")
			return
		}

		if err := store.DeleteCapture(uuid); err != nil {
			if errors.Is(err, storage.ErrNoCapture) {
				writeError(w, http.StatusNotFound, "Capture "+uuid+" not found")
				return
			}
			logger.Error("Error deleting capture %s: %v", uuid, err)
			writeError(w, http.StatusInternalServerError, "Unable to delete capture")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// CaptureStatsHandler returns totals per category and the most frequent labels.
func CaptureStatsHandler(captureRepo repository.CaptureRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := captureRepo.GetStats()
		if err != nil {
			logger.Error("Error getting capture stats: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// LabelsHandler lists every detected label for the gallery filter.
func LabelsHandler(detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labels, err := detectionRepo.GetAllLabels()
		if err != nil {
			logger.Error("Error getting labels: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if labels == nil {
			labels = []string{}
		}
		writeJSON(w, http.StatusOK, labels)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
