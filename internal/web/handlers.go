package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/service"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of an upload is buffered in memory before
// the multipart reader spills to a temporary file.
const multipartMemory = 8 << 20

type healthResponse struct {
	Status     string    `json:"status"`
	SnapshotID string    `json:"snapshot_id"`
	Products   int       `json:"products"`
	LoadedAt   time.Time `json:"loaded_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.catalog.Snapshot()
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:     "ok",
		SnapshotID: snap.ID,
		Products:   snap.Store.Len(),
		LoadedAt:   snap.LoadedAt,
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseProductQuery(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	res, err := s.catalog.Query(q)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.Product(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.catalog.Categories())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.catalog.Snapshot())
}

// handleStatus reports how busy the ingestion limiter is, so operators can
// tell whether an upload would be accepted now.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.catalog.LimiterStatus())
}

// replaceResponse answers a successful upload or reload.
type replaceResponse struct {
	SnapshotID string        `json:"snapshot_id"`
	Source     string        `json:"source"`
	Products   int           `json:"products"`
	Report     ingest.Report `json:"report"`
}

func newReplaceResponse(snap *service.Snapshot) replaceResponse {
	return replaceResponse{
		SnapshotID: snap.ID,
		Source:     snap.Source,
		Products:   snap.Store.Len(),
		Report:     snap.Report,
	}
}

// handleUpload replaces the catalog with the CSV in the multipart field
// "file". A rejected upload leaves the served catalog untouched.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respondError(w, r, errFileTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	logger := logging.WithFields(r.Context(), "file", header.Filename, "size", header.Size)
	logger.Info("catalog upload started")

	snap, err := s.catalog.Ingest(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	logger.Info("catalog upload completed",
		"snapshot_id", snap.ID,
		"accepted", snap.Report.Accepted,
		"rejected", snap.Report.Rejected(),
	)
	writeJSON(w, r, http.StatusOK, newReplaceResponse(snap))
}

// handleReload reloads the catalog from its configured source.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.cfg.Catalog.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Catalog.LoadTimeout)
		defer cancel()
	}

	snap, err := s.catalog.Reload(ctx)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			// The source itself failed.
			status = http.StatusBadGateway
		}
		respondError(w, r, err, status)
		return
	}
	writeJSON(w, r, http.StatusOK, newReplaceResponse(snap))
}
