package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
	"github.com/pesio-ai/be-catering-requests/internal/storage"
)

// AttachmentPolicy bounds what may be uploaded.
type AttachmentPolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

// AttachmentService validates, stores and registers uploaded files.
type AttachmentService struct {
	store  repository.Store
	blobs  storage.BlobStore
	limits AttachmentPolicy
	policy domain.Policy
	log    *logger.Logger
}

// NewAttachmentService creates a new attachment service
func NewAttachmentService(
	store repository.Store,
	blobs storage.BlobStore,
	limits AttachmentPolicy,
	policy domain.Policy,
	log *logger.Logger,
) *AttachmentService {
	return &AttachmentService{
		store:  store,
		blobs:  blobs,
		limits: limits,
		policy: policy,
		log:    log,
	}
}

// AttachRequest represents an attach file request
type AttachRequest struct {
	OwnerType domain.OwnerType
	OwnerID   string
	FileName  string
	Data      []byte
}

// checkFile enforces the size and type policy and returns the detected type.
func (s *AttachmentService) checkFile(data []byte) (string, error) {
	size := int64(len(data))
	if size == 0 {
		return "", errors.InvalidAttachment("file is empty")
	}
	if s.limits.MaxBytes > 0 && size > s.limits.MaxBytes {
		return "", errors.InvalidAttachment(fmt.Sprintf("file is %d bytes, the limit is %d", size, s.limits.MaxBytes)).
			WithDetail("size", size).
			WithDetail("max_size", s.limits.MaxBytes)
	}

	detected := mimetype.Detect(data)
	for _, allowed := range s.limits.AllowedTypes {
		if detected.Is(allowed) {
			mediaType, _, _ := strings.Cut(detected.String(), ";")
			return mediaType, nil
		}
	}
	return "", errors.InvalidAttachment(fmt.Sprintf("file type '%s' is not allowed", detected.String())).
		WithDetail("detected_type", detected.String()).
		WithDetail("allowed_types", s.limits.AllowedTypes)
}

// authorizeOwner checks that the owner exists and the actor may attach to it.
func (s *AttachmentService) authorizeOwner(ctx context.Context, q repository.Queries, actor domain.Actor, t domain.OwnerType, id string) error {
	switch t {
	case domain.OwnerRequest:
		sr, err := q.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, sr, domain.ActionAttach); err != nil {
			return err
		}
		if sr.Status.Terminal() {
			return domain.TransitionConflict(sr, domain.ActionAttach)
		}
	case domain.OwnerInvoice:
		if _, err := q.GetInvoice(ctx, id); err != nil {
			return err
		}
		if !actor.Caps.CanCreateInvoice {
			return errors.Forbidden(fmt.Sprintf("role %s cannot attach files to invoices", actor.Role))
		}
	case domain.OwnerPayment:
		if _, err := q.GetPayment(ctx, id); err != nil {
			return err
		}
		if !actor.Caps.CanCreatePayment {
			return errors.Forbidden(fmt.Sprintf("role %s cannot attach files to payments", actor.Role))
		}
	default:
		return errors.InvalidInput("ownerType", fmt.Sprintf("unknown owner type '%s'", t))
	}
	return nil
}

// Attach validates the file, stores its bytes and records the attachment.
// Files that break the size or type policy are rejected before anything is
// stored.
func (s *AttachmentService) Attach(ctx context.Context, actor domain.Actor, req *AttachRequest) (*domain.Attachment, error) {
	if !req.OwnerType.Valid() {
		return nil, errors.InvalidInput("ownerType", fmt.Sprintf("unknown owner type '%s'", req.OwnerType))
	}
	if req.OwnerID == "" {
		return nil, errors.InvalidInput("ownerId", "owner id is required")
	}
	fileType, err := s.checkFile(req.Data)
	if err != nil {
		record(entityAttachment, "create", err)
		return nil, err
	}

	if err := s.store.View(ctx, func(q repository.Queries) error {
		return s.authorizeOwner(ctx, q, actor, req.OwnerType, req.OwnerID)
	}); err != nil {
		record(entityAttachment, "create", err)
		return nil, err
	}

	attachment := &domain.Attachment{
		ID:         newID(),
		FileName:   cleanFileName(req.FileName),
		FileType:   fileType,
		FileSize:   int64(len(req.Data)),
		UploadedBy: actor.UserID,
		CreatedAt:  now(),
	}
	attachment.SetOwner(req.OwnerType, req.OwnerID)

	key := path.Join(string(req.OwnerType)+"s", req.OwnerID, attachment.ID+"-"+attachment.FileName)
	url, err := s.blobs.Put(ctx, key, req.Data, fileType)
	if err != nil {
		record(entityAttachment, "create", err)
		return nil, err
	}
	attachment.URL = url

	err = s.store.InTransaction(ctx, func(q repository.Queries) error {
		if err := s.authorizeOwner(ctx, q, actor, req.OwnerType, req.OwnerID); err != nil {
			return err
		}
		return q.CreateAttachment(ctx, attachment)
	})
	record(entityAttachment, "create", err)
	if err != nil {
		s.log.Warn().Err(err).
			Str("url", url).
			Msg("Attachment stored but not recorded")
		return nil, err
	}

	s.log.Info().
		Str("attachment_id", attachment.ID).
		Str("owner_type", string(req.OwnerType)).
		Str("owner_id", req.OwnerID).
		Str("file_type", fileType).
		Int64("file_size", attachment.FileSize).
		Msg("Attachment uploaded")

	return attachment, nil
}

// ListAttachments lists the attachments of one owner.
func (s *AttachmentService) ListAttachments(ctx context.Context, actor domain.Actor, ownerType domain.OwnerType, ownerID string) ([]*domain.Attachment, error) {
	if !ownerType.Valid() {
		return nil, errors.InvalidInput("ownerType", fmt.Sprintf("unknown owner type '%s'", ownerType))
	}

	var out []*domain.Attachment
	err := s.store.View(ctx, func(q repository.Queries) error {
		if err := canViewOwner(ctx, q, actor, ownerType, ownerID); err != nil {
			return err
		}
		var err error
		out, err = q.ListAttachments(ctx, ownerType, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func canViewOwner(ctx context.Context, q repository.Queries, actor domain.Actor, t domain.OwnerType, id string) error {
	switch t {
	case domain.OwnerRequest:
		sr, err := q.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if !canView(actor, sr) {
			return errors.Forbidden("you cannot view this request")
		}
		return nil
	case domain.OwnerInvoice:
		inv, err := q.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		return canViewBilling(ctx, q, actor, inv.RequestID)
	default:
		p, err := q.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		inv, err := q.GetInvoice(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		return canViewBilling(ctx, q, actor, inv.RequestID)
	}
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20 || r == '/' || r == 0x7f:
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
