package httpserver

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pesan/internal/config"
)

var allowedUploadExts = map[string]string{
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".gif":  "image",
	".webp": "image",
	".mp3":  "audio",
	".ogg":  "audio",
	".wav":  "audio",
	".m4a":  "audio",
	".pdf":  "file",
	".zip":  "file",
	".txt":  "file",
	".doc":  "file",
	".docx": "file",
}

// UploadRoutes returns a sub-router mounted at /api/uploads. Uploaded media
// gets a random filename and is referenced by URL from message content.
func UploadRoutes(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(25 << 20); err != nil {
			http.Error(w, "failed to parse multipart form", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		kind, ok := allowedUploadExts[ext]
		if !ok {
			http.Error(w, "unsupported file type", http.StatusBadRequest)
			return
		}

		filename := uuid.NewString() + ext
		out, err := os.Create(filepath.Join(cfg.UploadDir, filename))
		if err != nil {
			http.Error(w, "could not create file", http.StatusInternalServerError)
			return
		}
		defer out.Close()

		if _, err := io.Copy(out, file); err != nil {
			http.Error(w, "could not save file", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"url":  "/api/uploads/" + filename,
			"type": kind,
		})
	})

	r.Get("/{filename}", func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		// Reject anything with path separators.
		if filename == "" || filepath.Base(filename) != filename {
			http.Error(w, "invalid filename", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.UploadDir, filename))
	})

	return r
}
