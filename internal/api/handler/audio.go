package handler

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sqrrr/gamehub/internal/api/apierr"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/assets"
)

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// AudioHandler streams round audio behind opaque tokens
type AudioHandler struct {
	gate   *assets.Gate
	dir    string
	logger *slog.Logger
}

// NewAudioHandler creates an audio handler serving files under dir
func NewAudioHandler(gate *assets.Gate, dir string, logger *slog.Logger) *AudioHandler {
	return &AudioHandler{
		gate:   gate,
		dir:    dir,
		logger: logger,
	}
}

// Stream handles GET /audio/{token}. Unknown, expired and missing files all
// answer 404 so a token cannot be used to map the catalog.
func (h *AudioHandler) Stream(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	ref, err := h.gate.Resolve(token)
	if err != nil {
		WriteError(w, err)
		return
	}

	// OpenInRoot refuses references that climb out of the audio directory
	f, err := os.OpenInRoot(h.dir, ref)
	if err != nil {
		h.logger.Warn("audio file unavailable",
			slog.String("file", ref),
			slog.String("error", err.Error()))
		WriteError(w, model.ErrAssetNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		WriteError(w, model.ErrAssetNotFound)
		return
	}

	if ct, ok := audioTypes[strings.ToLower(filepath.Ext(ref))]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// Forbidden handles GET /assets/audio/... so files are never reachable by name
func (h *AudioHandler) Forbidden(w http.ResponseWriter, r *http.Request) {
	WriteError(w, apierr.NewForbiddenError())
}
