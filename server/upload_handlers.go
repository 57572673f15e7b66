package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const uploadField = "image"

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

type uploadedFile struct {
	contentType string
	data        []byte
	modTime     time.Time
}

// uploadStore keeps uploaded images in memory, keyed by their generated name.
type uploadStore struct {
	mu    sync.RWMutex
	files map[string]uploadedFile
}

func newUploadStore() *uploadStore {
	return &uploadStore{files: make(map[string]uploadedFile)}
}

func (u *uploadStore) put(name string, f uploadedFile) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files[name] = f
}

func (u *uploadStore) get(name string) (uploadedFile, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	f, ok := u.files[name]
	return f, ok
}

func (s *Server) UploadImageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxSize := s.config.GetMaxUploadSize()
		// leave room for the multipart framing around a file at the limit
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusBadRequest, "File too large. Maximum size is 5MB.")
				return
			}
			writeError(w, http.StatusBadRequest, "No image file provided")
			return
		}
		defer file.Close()

		contentType := strings.ToLower(header.Header.Get("Content-Type"))
		if _, ok := allowedImageTypes[contentType]; !ok {
			writeError(w, http.StatusBadRequest, "Invalid file type. Only JPEG, PNG, GIF, and WebP are allowed.")
			return
		}
		if header.Size > maxSize {
			writeError(w, http.StatusBadRequest, "File too large. Maximum size is 5MB.")
			return
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, file); err != nil {
			log.Err(err).Msg("[UploadImageHandler] read upload")
			writeError(w, http.StatusInternalServerError, "Upload failed: "+err.Error())
			return
		}

		name := uuid.New().String() + filepath.Ext(header.Filename)
		s.uploads.put(name, uploadedFile{contentType: contentType, data: buf.Bytes(), modTime: s.nowTime()})
		fileName := "uploads/" + name

		writeJSON(w, http.StatusCreated, map[string]any{
			"success":   true,
			"image_url": s.config.GetMediaURL() + fileName,
			"file_name": fileName,
			"message":   "Image uploaded successfully",
		})
	}
}

// MediaHandler serves uploaded images.
func (s *Server) MediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		f, ok := s.uploads.get(name)
		if !ok {
			notFound(w, r)
			return
		}
		w.Header().Set("Content-Type", f.contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		http.ServeContent(w, r, name, f.modTime, bytes.NewReader(f.data))
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": s.nowTime().UTC().Format(time.RFC3339Nano),
			"version":   apiVersion,
			"services": map[string]string{
				"database":    "connected",
				"django_auth": "configured",
			},
		})
	}
}
