package relations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/relatio-crm/relatio/internal/storage"
	"github.com/relatio-crm/relatio/jobs"
)

// TaskEnqueuer queues background tasks. Satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service orchestrates validation results, normalization output and the
// repository for the relation aggregate.
type Service struct {
	repo   Repository
	cache  *ListCache
	blobs  storage.BlobStore
	signer storage.URLSigner
	tasks  TaskEnqueuer
	logger *slog.Logger
	urlTTL time.Duration
}

// NewService constructs the relation service.
func NewService(repo Repository, cache *ListCache, blobs storage.BlobStore, signer storage.URLSigner, tasks TaskEnqueuer, logger *slog.Logger, urlTTL time.Duration) *Service {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		blobs:  blobs,
		signer: signer,
		tasks:  tasks,
		logger: logger,
		urlTTL: urlTTL,
	}
}

// ---------------------------------------------------------------------------
// Relations

func (s *Service) ListRelations(ctx context.Context) ([]Relation, error) {
	return s.cache.Fetch(ctx, s.repo.ListRelations)
}

func (s *Service) GetRelation(ctx context.Context, id uuid.UUID) (*Relation, error) {
	return s.repo.GetRelation(ctx, id)
}

func (s *Service) CreateRelation(ctx context.Context, req CreateRelationRequest) (*Relation, error) {
	created, err := s.repo.CreateRelation(ctx, req.toModel())
	if err != nil {
		return nil, fmt.Errorf("create relation: %w", err)
	}
	s.cache.Bump(ctx)
	return created, nil
}

// UpdateRelation applies a normalized patch. Only the supplied fields
// change; the repository refreshes updated_at.
func (s *Service) UpdateRelation(ctx context.Context, id uuid.UUID, patch map[string]any) (*Relation, error) {
	updates := toColumns(patch, relationColumnsByField)
	if len(updates) == 0 {
		return s.repo.GetRelation(ctx, id)
	}
	if err := s.repo.UpdateRelation(ctx, id, updates); err != nil {
		return nil, err
	}
	s.cache.Bump(ctx)
	return s.repo.GetRelation(ctx, id)
}

// DeleteRelation removes the relation and all dependents in one
// transaction: notes first, then documents, then contact persons, then the
// relation row. A missing relation aborts before any deletion. Blobs of
// deleted documents are purged in the background after commit.
func (s *Service) DeleteRelation(ctx context.Context, id uuid.UUID) error {
	var blobPaths []string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.GetRelation(ctx, id); err != nil {
			return err
		}
		docs, err := tx.ListDocuments(ctx, id)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			blobPaths = append(blobPaths, doc.Path)
		}
		if err := tx.DeleteNotesByRelation(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteDocumentsByRelation(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteContactPersonsByRelation(ctx, id); err != nil {
			return err
		}
		return tx.DeleteRelation(ctx, id)
	})
	if err != nil {
		return err
	}
	s.cache.Bump(ctx)
	s.enqueueBlobPurge(blobPaths)
	return nil
}

func (s *Service) enqueueBlobPurge(paths []string) {
	if s.tasks == nil || len(paths) == 0 {
		return
	}
	task, err := jobs.NewDocumentPurgeTask(jobs.DocumentPurgePayload{Paths: paths})
	if err == nil {
		_, err = s.tasks.Enqueue(task)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("enqueue blob purge", slog.Any("error", err), slog.Int("paths", len(paths)))
	}
}

// toColumns translates JSON field names to column names and coerces JSON
// numbers destined for integer columns.
func toColumns(patch map[string]any, columnsByField map[string]string) map[string]any {
	updates := make(map[string]any, len(patch))
	for field, value := range patch {
		column, ok := columnsByField[field]
		if !ok {
			continue
		}
		if column == "payment_term" {
			if f, ok := value.(float64); ok {
				value = int(f)
			}
		}
		updates[column] = value
	}
	return updates
}

// ---------------------------------------------------------------------------
// Contact persons

func (s *Service) ListContactPersons(ctx context.Context, relationID uuid.UUID) ([]ContactPerson, error) {
	return s.repo.ListContactPersons(ctx, relationID)
}

func (s *Service) GetMainContact(ctx context.Context, relationID uuid.UUID) (*ContactPerson, error) {
	return s.repo.GetMainContact(ctx, relationID)
}

func (s *Service) CreateContactPerson(ctx context.Context, relationID uuid.UUID, req CreateContactPersonRequest) (*ContactPerson, error) {
	if _, err := s.repo.GetRelation(ctx, relationID); err != nil {
		return nil, err
	}
	person := ContactPerson{
		RelationID: relationID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Position:   req.Position,
		Department: req.Department,
		Notes:      req.Notes,
	}
	created, err := s.repo.CreateContactPerson(ctx, person)
	if err != nil {
		return nil, fmt.Errorf("create contact person: %w", err)
	}
	return created, nil
}

func (s *Service) UpdateContactPerson(ctx context.Context, id uuid.UUID, patch map[string]any) (*ContactPerson, error) {
	updates := toColumns(patch, contactPersonColumnsByField)
	if len(updates) == 0 {
		return s.repo.GetContactPerson(ctx, id)
	}
	if err := s.repo.UpdateContactPerson(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.GetContactPerson(ctx, id)
}

func (s *Service) DeleteContactPerson(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteContactPerson(ctx, id)
}

// SetMainContact reassigns the main contact transactionally: clear the
// flag on every contact of the relation, then set it on the named one. A
// contact that does not belong to the relation fails the second step and
// rolls back the first.
func (s *Service) SetMainContact(ctx context.Context, relationID, contactID uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.ClearMainContact(ctx, relationID); err != nil {
			return err
		}
		return tx.SetMainContact(ctx, relationID, contactID)
	})
}

// ---------------------------------------------------------------------------
// Documents

func (s *Service) ListDocuments(ctx context.Context, relationID uuid.UUID) ([]Document, error) {
	return s.repo.ListDocuments(ctx, relationID)
}

// UploadDocument stores the file content first so the blob store assigns
// the opaque path, then persists the metadata row. A failed insert removes
// the orphaned blob again.
func (s *Service) UploadDocument(ctx context.Context, relationID uuid.UUID, req CreateDocumentRequest, filename string, size int64, mimeType string, content io.Reader) (*Document, error) {
	if _, err := s.repo.GetRelation(ctx, relationID); err != nil {
		return nil, err
	}

	destPath := fmt.Sprintf("documents/%s/%s%s", relationID, uuid.New(), path.Ext(filename))
	storedPath, err := s.blobs.Upload(ctx, content, destPath)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	docType := req.Type
	if docType == "" {
		docType = "file"
	}
	doc := Document{
		RelationID:  relationID,
		Name:        req.Name,
		Type:        docType,
		Path:        storedPath,
		Size:        size,
		Description: req.Description,
		UploadedBy:  req.UploadedBy,
	}
	if mimeType != "" {
		doc.MimeType = &mimeType
	}

	created, err := s.repo.CreateDocument(ctx, doc)
	if err != nil {
		if removeErr := s.blobs.Remove(ctx, storedPath); removeErr != nil && s.logger != nil {
			s.logger.Warn("remove orphaned blob", slog.Any("error", removeErr), slog.String("path", storedPath))
		}
		return nil, fmt.Errorf("create document: %w", err)
	}
	return created, nil
}

func (s *Service) UpdateDocument(ctx context.Context, id uuid.UUID, patch map[string]any) (*Document, error) {
	updates := toColumns(patch, documentColumnsByField)
	if len(updates) == 0 {
		return s.repo.GetDocument(ctx, id)
	}
	if err := s.repo.UpdateDocument(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.GetDocument(ctx, id)
}

// DocumentURL mints a time-limited signed download URL for the document.
func (s *Service) DocumentURL(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	return s.signer.Sign(doc.Path, s.urlTTL), nil
}

// VerifyDownload checks a signed download URL's signature and expiry.
func (s *Service) VerifyDownload(path, expires, signature string) error {
	return s.signer.Verify(path, expires, signature)
}

// OpenBlob streams the blob content at the given opaque path.
func (s *Service) OpenBlob(ctx context.Context, path string) (io.ReadCloser, error) {
	return s.blobs.Open(ctx, path)
}

func (s *Service) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, doc.Path); err != nil && s.logger != nil {
		s.logger.Warn("remove blob", slog.Any("error", err), slog.String("path", doc.Path))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Notes

func (s *Service) ListNotes(ctx context.Context, relationID uuid.UUID) ([]Note, error) {
	return s.repo.ListNotes(ctx, relationID)
}

func (s *Service) CreateNote(ctx context.Context, relationID uuid.UUID, req CreateNoteRequest) (*Note, error) {
	if _, err := s.repo.GetRelation(ctx, relationID); err != nil {
		return nil, err
	}
	note := Note{
		RelationID: relationID,
		Title:      req.Title,
		Content:    req.Content,
		Category:   req.Category,
		IsPrivate:  req.IsPrivate,
		CreatedBy:  req.CreatedBy,
	}
	created, err := s.repo.CreateNote(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return created, nil
}

func (s *Service) UpdateNote(ctx context.Context, id uuid.UUID, patch map[string]any) (*Note, error) {
	updates := toColumns(patch, noteColumnsByField)
	if len(updates) == 0 {
		return s.repo.GetNote(ctx, id)
	}
	if err := s.repo.UpdateNote(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.GetNote(ctx, id)
}

func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteNote(ctx, id)
}
