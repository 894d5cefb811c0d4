package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gonogo/internal/sizestd"
	"gonogo/internal/sizestd/importer"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/platform/httputil"
	"gonogo/pkg/requestcontext"
)

const maxUploadBytes = 8 << 20

// Service is the size standard capability the handler needs.
type Service interface {
	Lookup(code domain.NAICSCode) (sizestd.Standard, sizestd.Source, bool)
	Import(ctx context.Context, rows []sizestd.Standard) (int, error)
}

// Handler serves size standard lookups and the admin import.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the public lookup endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Get("/naics/{code}/size-standard", h.HandleGetSizeStandard)
}

// RegisterAdmin mounts the import endpoint. Callers wrap r with admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/size-standards/import", h.HandleImport)
}

// HandleGetSizeStandard handles GET /naics/{code}/size-standard.
func (h *Handler) HandleGetSizeStandard(w http.ResponseWriter, r *http.Request) {
	code, err := domain.ParseNAICSCode(chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	row, source, ok := h.service.Lookup(code)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no size standard on file for NAICS "+code.String()))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(row, source))
}

// HandleImport handles POST /admin/size-standards/import. The table arrives as a
// multipart "file" field, or as the raw body with a CSV or XLSX content type.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	body, filename, contentType, err := uploadedFile(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer body.Close()

	format, err := importer.FormatFor(filename, contentType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rows, err := importer.Parse(format, body)
	if err != nil {
		h.logger.InfoContext(ctx, "size standard import rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	n, err := h.service.Import(ctx, rows)
	if err != nil {
		h.logger.ErrorContext(ctx, "size standard import failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "size standards imported",
		"request_id", requestID,
		"format", format,
		"rows", n,
	)
	httputil.WriteJSON(w, http.StatusOK, ImportResponse{Imported: n})
}

func uploadedFile(r *http.Request) (io.ReadCloser, string, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err == nil {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", "", dErrors.New(dErrors.CodeBadRequest, "multipart field \"file\" is required")
		}
		return file, header.Filename, header.Header.Get("Content-Type"), nil
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return nil, "", "", dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed multipart upload")
	}
	return r.Body, r.URL.Query().Get("filename"), r.Header.Get("Content-Type"), nil
}
