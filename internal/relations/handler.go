package relations

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relatio-crm/relatio/internal/platform/httpx"
	"github.com/relatio-crm/relatio/internal/storage"
)

// Handler maps the REST surface onto the relation service. It is the only
// layer converting domain errors into HTTP envelopes.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		httpx.Fail(w, http.StatusBadRequest, label+" ID is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, notFoundMessage string) {
	if errors.Is(err, ErrNotFound) {
		httpx.Fail(w, http.StatusNotFound, notFoundMessage)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.Fail(w, http.StatusInternalServerError, "An unexpected error occurred")
}

func decodePatch(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var raw map[string]any
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON payload")
		return nil, false
	}
	return raw, true
}

// ---------------------------------------------------------------------------
// Relations

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListRelations(r.Context())
	if err != nil {
		h.fail(w, "list relations", err, "Relationship not found")
		return
	}
	if result == nil {
		result = []Relation{}
	}
	httpx.Success(w, http.StatusOK, result)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRelationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if errs := ValidateRelationCreate(req); len(errs) > 0 {
		httpx.FailWithDetails(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	created, err := h.service.CreateRelation(r.Context(), req)
	if err != nil {
		h.fail(w, "create relation", err, "Relationship not found")
		return
	}
	httpx.Success(w, http.StatusCreated, created)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id", "Relationship")
	if !ok {
		return
	}
	rel, err := h.service.GetRelation(r.Context(), id)
	if err != nil {
		h.fail(w, "get relation", err, "Relationship not found")
		return
	}
	httpx.Success(w, http.StatusOK, rel)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id", "Relationship")
	if !ok {
		return
	}
	raw, ok := decodePatch(w, r)
	if !ok {
		return
	}
	patch := FilterPatch(raw, relationColumnsByField)
	if errs := ValidateRelationPatch(patch); len(errs) > 0 {
		httpx.FailWithDetails(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	updated, err := h.service.UpdateRelation(r.Context(), id, NormalizePatch(patch))
	if err != nil {
		h.fail(w, "update relation", err, "Relationship not found")
		return
	}
	httpx.Success(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id", "Relationship")
	if !ok {
		return
	}
	if err := h.service.DeleteRelation(r.Context(), id); err != nil {
		h.fail(w, "delete relation", err, "Relationship not found")
		return
	}
	httpx.Success(w, http.StatusOK, map[string]string{"message": "Relationship deleted successfully"})
}

// ---------------------------------------------------------------------------
// Contact persons

func (h *Handler) ListContactPersons(w http.ResponseWriter, r *http.Request) {
	relationID, ok := h.parseID(w, r, "id", "Relation")
	if !ok {
		return
	}
	result, err := h.service.ListContactPersons(r.Context(), relationID)
	if err != nil {
		h.fail(w, "list contact persons", err, "Relation not found")
		return
	}
	if result == nil {
		result = []ContactPerson{}
	}
	httpx.Success(w, http.StatusOK, result)
}

func (h *Handler) CreateContactPerson(w http.ResponseWriter, r *http.Request) {
	relationID, ok := h.parseID(w, r, "id", "Relation")
	if !ok {
		return
	}
	var req CreateContactPersonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if errs := ValidateContactPersonCreate(req); len(errs) > 0 {
		httpx.FailWithDetails(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	created, err := h.service.CreateContactPerson(r.Context(), relationID, req)
	if err != nil {
		h.fail(w, "create contact person", err, "Relation not found")
		return
	}
	httpx.Success(w, http.StatusCreated, created)
}

func (h *Handler) ShowMainContact(w http.ResponseWriter, r *http.Request) {
	relationID, ok := h.parseID(w, r, "id", "Relation")
	if !ok {
		return
	}
	person, err := h.service.GetMainContact(r.Context(), relationID)
	if err != nil {
		h.fail(w, "get main contact", err, "Contact person not found")
		return
	}
	httpx.Success(w, http.StatusOK, person)
}

func (h *Handler) UpdateContactPerson(w http.ResponseWriter, r *http.Request) {
	contactID, ok := h.parseID(w, r, "contactID", "Contact person")
	if !ok {
		return
	}
	raw, ok := decodePatch(w, r)
	if !ok {
		return
	}
	patch := FilterPatch(raw, contactPersonColumnsByField)
	if errs := ValidateContactPersonPatch(patch); len(errs) > 0 {
		httpx.FailWithDetails(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	updated, err := h.service.UpdateContactPerson(r.Context(), contactID, NormalizePatch(patch))
	if err != nil {
		h.fail(w, "update contact person", err, "Contact person not found")
		return
	}
	httpx.Success(w, http.StatusOK, updated)
}

func (h *Handler) DeleteContactPerson(w http.ResponseWriter, r *http.Request) {
	contactID, ok := h.parseID(w, r, "contactID", "Contact person")
	if !ok {
		return
	}
	if err := h.service.DeleteContactPerson(r.Context(), contactID); err != nil {
		h.fail(w, "delete contact person", err, "Contact person not found")
		return
	}
	httpx.Success(w, http.StatusOK, map[string]string{"message": "Contact person deleted successfully"})
}

func (h *Handler) SetMainContact(w http.ResponseWriter, r *http.Request) {
	relationID, ok := h.parseID(w, r, "id", "Relation")
	if !ok {
		return
	}
	contactID, ok := h.parseID(w, r, "contactID", "Contact person")
	if !ok {
		return
	}
	if err := h.service.SetMainContact(r.Context(), relationID, contactID); err != nil {
		h.fail(w, "set main contact", err, "Contact person not found")
		return
	}
	httpx.Success(w, http.StatusOK, map[string]string{"message": "Main contact updated successfully"})
}

// ---------------------------------------------------------------------------
// Documents

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	relationID, ok := h.parseID(w, r, "id", "Relation")
	if !ok {
		return
	}
	result, err := h.service.ListDocuments(r.Context(), relationID)
	if err != nil {
		h.fail(w, "list documents", err, "Relation not found")
		return
	}
	if result == nil {
		result = []Document{}
	}
	httpx.Success(w, http.StatusOK, result)
}

const maxUploadBytes = 32 << 20

// UploadDocument accepts a multipart form with a "file" part and optional
// metadata fields. The blob store assigns the stored path.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	relationID, ok := h.parseID(w, r, "id", "Relation")
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Document file is required")
		return
	}
	defer file.Close()

	req := CreateDocumentRequest{
		Name: r.FormValue("name"),
		Type: r.FormValue("type"),
	}
	if req.Name == "" {
		req.Name = header.Filename
	}
	if description := r.FormValue("description"); description != "" {
		req.Description = &description
	}
	if uploadedBy := r.FormValue("uploadedBy"); uploadedBy != "" {
		req.UploadedBy = &uploadedBy
	}
	if errs := ValidateDocumentCreate(req); len(errs) > 0 {
		httpx.FailWithDetails(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	created, err := h.service.UploadDocument(r.Context(), relationID, req,
		header.Filename, header.Size, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.fail(w, "upload document", err, "Relation not found")
		return
	}
	httpx.Success(w, http.StatusCreated, created)
}

func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := h.parseID(w, r, "documentID", "Document")
	if !ok {
		return
	}
	raw, ok := decodePatch(w, r)
	if !ok {
		return
	}
	patch := FilterPatch(raw, documentColumnsByField)
	if errs := ValidateDocumentPatch(patch); len(errs) > 0 {
		httpx.FailWithDetails(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	updated, err := h.service.UpdateDocument(r.Context(), documentID, NormalizePatch(patch))
	if err != nil {
		h.fail(w, "update document", err, "Document not found")
		return
	}
	httpx.Success(w, http.StatusOK, updated)
}

func (h *Handler) ShowDocumentURL(w http.ResponseWriter, r *http.Request) {
	documentID, ok := h.parseID(w, r, "documentID", "Document")
	if !ok {
		return
	}
	url, err := h.service.DocumentURL(r.Context(), documentID)
	if err != nil {
		h.fail(w, "sign document url", err, "Document not found")
		return
	}
	httpx.Success(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := h.parseID(w, r, "documentID", "Document")
	if !ok {
		return
	}
	if err := h.service.DeleteDocument(r.Context(), documentID); err != nil {
		h.fail(w, "delete document", err, "Document not found")
		return
	}
	httpx.Success(w, http.StatusOK, map[string]string{"message": "Document deleted successfully"})
}

// DownloadFile serves blob content referenced by a signed URL.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		httpx.Fail(w, http.StatusBadRequest, "File path is required")
		return
	}
	query := r.URL.Query()
	if err := h.service.VerifyDownload(path, query.Get("expires"), query.Get("sig")); err != nil {
		httpx.Fail(w, http.StatusForbidden, "Invalid or expired download link")
		return
	}
	blob, err := h.service.OpenBlob(r.Context(), path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			httpx.Fail(w, http.StatusNotFound, "File not found")
			return
		}
		h.fail(w, "open blob", err, "File not found")
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, blob); err != nil {
		h.logger.Warn("stream blob", slog.Any("error", err), slog.String("path", path))
	}
}

// ---------------------------------------------------------------------------
// Notes

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	relationID, ok := h.parseID(w, r, "id", "Relation")
	if !ok {
		return
	}
	result, err := h.service.ListNotes(r.Context(), relationID)
	if err != nil {
		h.fail(w, "list notes", err, "Relation not found")
		return
	}
	if result == nil {
		result = []Note{}
	}
	httpx.Success(w, http.StatusOK, result)
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	relationID, ok := h.parseID(w, r, "id", "Relation")
	if !ok {
		return
	}
	var req CreateNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if errs := ValidateNoteCreate(req); len(errs) > 0 {
		httpx.FailWithDetails(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	created, err := h.service.CreateNote(r.Context(), relationID, req)
	if err != nil {
		h.fail(w, "create note", err, "Relation not found")
		return
	}
	httpx.Success(w, http.StatusCreated, created)
}

func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := h.parseID(w, r, "noteID", "Note")
	if !ok {
		return
	}
	raw, ok := decodePatch(w, r)
	if !ok {
		return
	}
	patch := FilterPatch(raw, noteColumnsByField)
	if errs := ValidateNotePatch(patch); len(errs) > 0 {
		httpx.FailWithDetails(w, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	updated, err := h.service.UpdateNote(r.Context(), noteID, NormalizePatch(patch))
	if err != nil {
		h.fail(w, "update note", err, "Note not found")
		return
	}
	httpx.Success(w, http.StatusOK, updated)
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := h.parseID(w, r, "noteID", "Note")
	if !ok {
		return
	}
	if err := h.service.DeleteNote(r.Context(), noteID); err != nil {
		h.fail(w, "delete note", err, "Note not found")
		return
	}
	httpx.Success(w, http.StatusOK, map[string]string{"message": "Note deleted successfully"})
}
