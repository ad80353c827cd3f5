package handler

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/service"
)

// multipartOverhead is the allowance for form fields and part headers on top
// of the file size limit.
const multipartOverhead = 64 << 10

// UploadAttachment handles POST /api/v1/attachments. The multipart form
// carries owner_type, owner_id and the file part.
func (h *HTTPHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.writeError(w, r, errors.InvalidAttachment(fmt.Sprintf("file exceeds the %d byte limit", h.opts.MaxUploadBytes)).
				WithDetail("max_bytes", h.opts.MaxUploadBytes))
			return
		}
		h.writeError(w, r, errors.Wrap(err, errors.ErrCodeValidation, "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, errors.InvalidInput("file", "file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, errors.Wrap(err, errors.ErrCodeValidation, "could not read file"))
		return
	}

	att, err := h.svc.Attachments.Attach(r.Context(), actorFrom(r), &service.AttachRequest{
		OwnerType: domain.OwnerType(r.FormValue("owner_type")),
		OwnerID:   r.FormValue("owner_id"),
		FileName:  header.Filename,
		Data:      data,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, att)
}

// ListAttachments handles GET /api/v1/attachments?owner_type=&owner_id=
func (h *HTTPHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	ownerType, err := requireQuery(r, "owner_type")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ownerID, err := requireQuery(r, "owner_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	attachments, err := h.svc.Attachments.ListAttachments(r.Context(), actorFrom(r), domain.OwnerType(ownerType), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeList(w, attachments)
}
