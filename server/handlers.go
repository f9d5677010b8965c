package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pkg/logging"
)

// UploadField 上传图片的 multipart 字段名
const UploadField = "uploaded_file"

type recommendResponse struct {
	Recommendations []core.PetResult `json:"recommendations"`
}

type matchResponse struct {
	Matches []core.PetResult `json:"matches"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var prefs core.Preferences
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&prefs); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	results, err := s.recommend.Recommend(r.Context(), s.catalog, &prefs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendResponse{Recommendations: results})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	// multipart 头部需要一点额外空间
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<10)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "uploaded file is too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing form field "+UploadField)
		return
	}
	defer file.Close()
	if header.Size > s.opts.MaxUploadBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "uploaded file is too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "read uploaded file: "+err.Error())
		return
	}

	fs, err := s.stores.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := s.match.Match(r.Context(), data, fs, s.catalog)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{Matches: results})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rc, err := s.images.Open(r.Context(), name)
	if err != nil {
		if core.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Image not found"})
			return
		}
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(data))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"catalog": s.catalog.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("encode response")
		http.Error(w, `{"detail":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError 按领域错误代码映射 HTTP 状态
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	evt := logging.Warn()
	if status >= http.StatusInternalServerError {
		evt = logging.Error()
	}
	evt.Err(err).
		Str("request_id", core.RequestIDFromContext(r.Context())).
		Int("status", status).
		Msg("request failed")
	writeDetail(w, status, err.Error())
}

// StatusFor 返回错误对应的 HTTP 状态码
func StatusFor(err error) int {
	de := core.GetDomainError(err)
	if de == nil {
		return http.StatusInternalServerError
	}
	switch de.Code {
	case core.ErrorCodeConfiguration, core.ErrorCodeInvalidInput, core.ErrorCodeDecode, core.ErrorCodeShape:
		return http.StatusBadRequest
	case core.ErrorCodeNotFound:
		return http.StatusNotFound
	case core.ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
