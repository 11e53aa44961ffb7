package route

import (
	"net/http"
	"os"
	"path/filepath"

	"intruderwatch/internal/config"
	"intruderwatch/internal/handler"
	"intruderwatch/internal/logger"
	"intruderwatch/internal/middleware"
	"intruderwatch/internal/repository"
	"intruderwatch/internal/service"
	"intruderwatch/internal/service/session"
	"intruderwatch/internal/service/storage"
	"intruderwatch/internal/service/stream"
	"intruderwatch/internal/service/websocket"
)

// Deps bundles everything the HTTP surface reads from.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Manager       *service.Manager
	Writer        *storage.Writer
	Hub           *websocket.HubService
	Stream        *stream.MJPEG
	Sessions      *session.Store
	CaptureRepo   repository.CaptureRepository
	ArtifactRepo  repository.ArtifactRepository
	DetectionRepo repository.DetectionRepository
}

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(d Deps) http.Handler {
	cfg, logger := d.Config, d.Logger
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// Live view
	mux.Handle("/video_feed", d.Stream)
	mux.HandleFunc("/snapshot", handler.SnapshotHandler(d.Stream))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(d.Hub, logger))
	mux.HandleFunc("/api/status", handler.StatusHandler(d.Manager))

	// Artifacts
	mux.HandleFunc("/image/", handler.LatestImageHandler(cfg, d.Writer, logger))
	mux.HandleFunc("/get_recent_image", handler.RecentImageHandler(cfg, d.Writer, logger))
	mux.HandleFunc("/api/captures", handler.GetCapturesHandler(cfg, logger, d.CaptureRepo, d.ArtifactRepo, d.DetectionRepo))
	mux.HandleFunc("/api/captures/clear", handler.ClearCapturesHandler(d.Writer, logger))
	mux.HandleFunc("/api/captures/view", handler.ViewCaptureHandler(d.Writer, logger))
	mux.HandleFunc("/api/captures/delete", handler.DeleteCaptureHandler(d.Writer, logger))
	mux.HandleFunc("/api/captures/stats", handler.CaptureStatsHandler(d.CaptureRepo, logger))
	mux.HandleFunc("/api/labels", handler.LabelsHandler(d.DetectionRepo, logger))

	// Log endpoints
	for route, file := range map[string]string{
		"/logs/info":    "info.log",
		"/logs/warning": "warning.log",
		"/logs/error":   "error.log",
	} {
		mux.HandleFunc(route, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc(route+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger, d.Sessions))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler(d.Sessions))

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDir))

	// Apply middleware
	return middleware.AuthMiddleware(d.Sessions, mux)
}
