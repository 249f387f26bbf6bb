package httptransport

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trustforge/internal/guard/file"
	"trustforge/internal/platform/middleware"
	"trustforge/internal/registry"
	"trustforge/internal/submit"
	"trustforge/internal/trust"
	dErrors "trustforge/pkg/domainerrors"
	"trustforge/pkg/platform/httputil"
)

type fileUpload struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
	// Content is base64-encoded file bytes; optional, content scanning is
	// skipped when absent.
	Content string `json:"content,omitempty"`
}

type submitRequest struct {
	Metadata trust.CredentialMetadata `json:"metadata"`
	File     *fileUpload              `json:"file,omitempty"`
}

type submitResponse struct {
	Credential registry.Record `json:"credential"`
	Warnings   []string        `json:"warnings,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.GetOwner(ctx)

	req, err := httputil.Decode[submitRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	domainReq := submit.Request{
		Owner:    owner,
		Metadata: req.Metadata,
	}
	if req.File != nil {
		domainReq.File = &file.Meta{
			Name:     req.File.Name,
			Size:     req.File.Size,
			MIMEType: req.File.MIMEType,
		}
		if req.File.Content != "" {
			content, decodeErr := base64.StdEncoding.DecodeString(req.File.Content)
			if decodeErr != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "file content must be base64 encoded"))
				return
			}
			domainReq.FileContent = content
		}
	}

	outcome, err := h.deps.Submitter.Submit(ctx, domainReq)
	if err != nil {
		h.deps.Logger.InfoContext(ctx, "submission rejected",
			"request_id", middleware.GetRequestID(ctx),
			"owner", owner,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, submitResponse{
		Credential: outcome.Record,
		Warnings:   outcome.Warnings,
	})
}

func (h *Handler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.GetOwner(ctx)

	records, err := h.deps.Registry.ListByOwner(ctx, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"credentials": records})
}

type updateRequest struct {
	Visibility *trust.Visibility `json:"visibility,omitempty"`
	ProofHash  *string           `json:"proof_hash,omitempty"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.GetOwner(ctx)
	id := chi.URLParam(r, "id")

	req, err := httputil.Decode[updateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.deps.Registry.Update(ctx, owner, id, registry.UpdateRequest{
		Visibility: req.Visibility,
		ProofHash:  req.ProofHash,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"credential": record})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.GetOwner(ctx)
	id := chi.URLParam(r, "id")

	if err := h.deps.Registry.Delete(ctx, owner, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
