package relations

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relatio-crm/relatio/internal/storage"
	"github.com/relatio-crm/relatio/jobs"
)

// mockRepository keeps all entities in maps. WithTx snapshots the maps and
// restores them when the closure fails, mirroring a rollback. Failures
// injects an error for the named method.
type mockRepository struct {
	relations map[uuid.UUID]Relation
	contacts  map[uuid.UUID]ContactPerson
	documents map[uuid.UUID]Document
	notes     map[uuid.UUID]Note
	failures  map[string]error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		relations: map[uuid.UUID]Relation{},
		contacts:  map[uuid.UUID]ContactPerson{},
		documents: map[uuid.UUID]Document{},
		notes:     map[uuid.UUID]Note{},
		failures:  map[string]error{},
	}
}

func (m *mockRepository) fail(method string) error {
	return m.failures[method]
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapRelations := copyMap(m.relations)
	snapContacts := copyMap(m.contacts)
	snapDocuments := copyMap(m.documents)
	snapNotes := copyMap(m.notes)

	if err := fn(ctx, m); err != nil {
		m.relations = snapRelations
		m.contacts = snapContacts
		m.documents = snapDocuments
		m.notes = snapNotes
		return err
	}
	return nil
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *mockRepository) ListRelations(ctx context.Context) ([]Relation, error) {
	if err := m.fail("ListRelations"); err != nil {
		return nil, err
	}
	var result []Relation
	for _, rel := range m.relations {
		result = append(result, rel)
	}
	return result, nil
}

func (m *mockRepository) GetRelation(ctx context.Context, id uuid.UUID) (*Relation, error) {
	if err := m.fail("GetRelation"); err != nil {
		return nil, err
	}
	rel, ok := m.relations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rel, nil
}

func (m *mockRepository) CreateRelation(ctx context.Context, rel Relation) (*Relation, error) {
	if err := m.fail("CreateRelation"); err != nil {
		return nil, err
	}
	rel.ID = uuid.New()
	rel.CreatedAt = time.Now()
	rel.UpdatedAt = rel.CreatedAt
	m.relations[rel.ID] = rel
	return &rel, nil
}

func (m *mockRepository) UpdateRelation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if err := m.fail("UpdateRelation"); err != nil {
		return err
	}
	rel, ok := m.relations[id]
	if !ok {
		return ErrNotFound
	}
	for column, value := range updates {
		switch column {
		case "short_name":
			rel.ShortName = value.(string)
		case "name":
			rel.Name = value.(string)
		case "email":
			rel.Email = asStringPtr(value)
		case "telephone":
			rel.Telephone = asStringPtr(value)
		case "website":
			rel.Website = asStringPtr(value)
		case "payment_term":
			rel.PaymentTerm = value.(int)
		case "credit_limit":
			rel.CreditLimit = value.(float64)
		case "is_customer":
			rel.IsCustomer = value.(bool)
		case "is_supplier":
			rel.IsSupplier = value.(bool)
		}
	}
	rel.UpdatedAt = time.Now()
	m.relations[id] = rel
	return nil
}

func asStringPtr(value any) *string {
	if value == nil {
		return nil
	}
	s := value.(string)
	return &s
}

func (m *mockRepository) DeleteRelation(ctx context.Context, id uuid.UUID) error {
	if err := m.fail("DeleteRelation"); err != nil {
		return err
	}
	if _, ok := m.relations[id]; !ok {
		return ErrNotFound
	}
	delete(m.relations, id)
	return nil
}

func (m *mockRepository) ListContactPersons(ctx context.Context, relationID uuid.UUID) ([]ContactPerson, error) {
	if err := m.fail("ListContactPersons"); err != nil {
		return nil, err
	}
	var result []ContactPerson
	for _, person := range m.contacts {
		if person.RelationID == relationID {
			result = append(result, person)
		}
	}
	return result, nil
}

func (m *mockRepository) GetContactPerson(ctx context.Context, id uuid.UUID) (*ContactPerson, error) {
	person, ok := m.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &person, nil
}

func (m *mockRepository) GetMainContact(ctx context.Context, relationID uuid.UUID) (*ContactPerson, error) {
	for _, person := range m.contacts {
		if person.RelationID == relationID && person.IsMainContact {
			p := person
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) CreateContactPerson(ctx context.Context, person ContactPerson) (*ContactPerson, error) {
	if err := m.fail("CreateContactPerson"); err != nil {
		return nil, err
	}
	person.ID = uuid.New()
	person.CreatedAt = time.Now()
	person.UpdatedAt = person.CreatedAt
	m.contacts[person.ID] = person
	return &person, nil
}

func (m *mockRepository) UpdateContactPerson(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	person, ok := m.contacts[id]
	if !ok {
		return ErrNotFound
	}
	for column, value := range updates {
		switch column {
		case "name":
			person.Name = value.(string)
		case "email":
			person.Email = asStringPtr(value)
		case "phone":
			person.Phone = asStringPtr(value)
		}
	}
	person.UpdatedAt = time.Now()
	m.contacts[id] = person
	return nil
}

func (m *mockRepository) DeleteContactPerson(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *mockRepository) DeleteContactPersonsByRelation(ctx context.Context, relationID uuid.UUID) error {
	if err := m.fail("DeleteContactPersonsByRelation"); err != nil {
		return err
	}
	for id, person := range m.contacts {
		if person.RelationID == relationID {
			delete(m.contacts, id)
		}
	}
	return nil
}

func (m *mockRepository) ClearMainContact(ctx context.Context, relationID uuid.UUID) error {
	if err := m.fail("ClearMainContact"); err != nil {
		return err
	}
	for id, person := range m.contacts {
		if person.RelationID == relationID {
			person.IsMainContact = false
			m.contacts[id] = person
		}
	}
	return nil
}

func (m *mockRepository) SetMainContact(ctx context.Context, relationID, contactID uuid.UUID) error {
	if err := m.fail("SetMainContact"); err != nil {
		return err
	}
	person, ok := m.contacts[contactID]
	if !ok || person.RelationID != relationID {
		return ErrNotFound
	}
	person.IsMainContact = true
	m.contacts[contactID] = person
	return nil
}

func (m *mockRepository) ListDocuments(ctx context.Context, relationID uuid.UUID) ([]Document, error) {
	if err := m.fail("ListDocuments"); err != nil {
		return nil, err
	}
	var result []Document
	for _, doc := range m.documents {
		if doc.RelationID == relationID {
			result = append(result, doc)
		}
	}
	return result, nil
}

func (m *mockRepository) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (m *mockRepository) CreateDocument(ctx context.Context, doc Document) (*Document, error) {
	if err := m.fail("CreateDocument"); err != nil {
		return nil, err
	}
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	m.documents[doc.ID] = doc
	return &doc, nil
}

func (m *mockRepository) UpdateDocument(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	doc, ok := m.documents[id]
	if !ok {
		return ErrNotFound
	}
	for column, value := range updates {
		switch column {
		case "name":
			doc.Name = value.(string)
		case "type":
			doc.Type = value.(string)
		case "description":
			doc.Description = asStringPtr(value)
		}
	}
	doc.UpdatedAt = time.Now()
	m.documents[id] = doc
	return nil
}

func (m *mockRepository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.documents[id]; !ok {
		return ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *mockRepository) DeleteDocumentsByRelation(ctx context.Context, relationID uuid.UUID) error {
	if err := m.fail("DeleteDocumentsByRelation"); err != nil {
		return err
	}
	for id, doc := range m.documents {
		if doc.RelationID == relationID {
			delete(m.documents, id)
		}
	}
	return nil
}

func (m *mockRepository) ListNotes(ctx context.Context, relationID uuid.UUID) ([]Note, error) {
	var result []Note
	for _, note := range m.notes {
		if note.RelationID == relationID {
			result = append(result, note)
		}
	}
	return result, nil
}

func (m *mockRepository) GetNote(ctx context.Context, id uuid.UUID) (*Note, error) {
	note, ok := m.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &note, nil
}

func (m *mockRepository) CreateNote(ctx context.Context, note Note) (*Note, error) {
	if err := m.fail("CreateNote"); err != nil {
		return nil, err
	}
	note.ID = uuid.New()
	note.CreatedAt = time.Now()
	note.UpdatedAt = note.CreatedAt
	m.notes[note.ID] = note
	return &note, nil
}

func (m *mockRepository) UpdateNote(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	note, ok := m.notes[id]
	if !ok {
		return ErrNotFound
	}
	for column, value := range updates {
		switch column {
		case "title":
			note.Title = value.(string)
		case "content":
			note.Content = value.(string)
		case "category":
			note.Category = asStringPtr(value)
		case "is_private":
			note.IsPrivate = value.(bool)
		}
	}
	note.UpdatedAt = time.Now()
	m.notes[id] = note
	return nil
}

func (m *mockRepository) DeleteNote(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.notes[id]; !ok {
		return ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *mockRepository) DeleteNotesByRelation(ctx context.Context, relationID uuid.UUID) error {
	if err := m.fail("DeleteNotesByRelation"); err != nil {
		return err
	}
	for id, note := range m.notes {
		if note.RelationID == relationID {
			delete(m.notes, id)
		}
	}
	return nil
}

// memBlobStore is an in-memory BlobStore recording removals.
type memBlobStore struct {
	blobs   map[string][]byte
	removed []string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: map[string][]byte{}}
}

func (s *memBlobStore) Upload(_ context.Context, content io.Reader, destPath string) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	s.blobs[destPath] = data
	return destPath, nil
}

func (s *memBlobStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.blobs[path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Remove(_ context.Context, path string) error {
	delete(s.blobs, path)
	s.removed = append(s.removed, path)
	return nil
}

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func newTestService(repo Repository, blobs storage.BlobStore, tasks TaskEnqueuer) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	signer := storage.NewHMACSigner("test-secret")
	return NewService(repo, nil, blobs, signer, tasks, logger, 15*time.Minute)
}

func seedRelation(t *testing.T, repo *mockRepository) Relation {
	t.Helper()
	created, err := repo.CreateRelation(context.Background(), Relation{
		ShortName: "ACME",
		Name:      "Acme Corporation",
	})
	require.NoError(t, err)
	return *created
}

func TestDeleteRelationCascades(t *testing.T) {
	repo := newMockRepository()
	blobs := newMemBlobStore()
	enqueuer := &captureEnqueuer{}
	svc := newTestService(repo, blobs, enqueuer)
	ctx := context.Background()

	rel := seedRelation(t, repo)
	_, err := repo.CreateContactPerson(ctx, ContactPerson{RelationID: rel.ID, Name: "Jan"})
	require.NoError(t, err)
	_, err = repo.CreateNote(ctx, Note{RelationID: rel.ID, Title: "Call", Content: "notes"})
	require.NoError(t, err)
	_, err = repo.CreateDocument(ctx, Document{RelationID: rel.ID, Name: "contract.pdf", Type: "file", Path: "documents/x/contract.pdf"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRelation(ctx, rel.ID))

	assert.Empty(t, repo.relations)
	assert.Empty(t, repo.contacts)
	assert.Empty(t, repo.notes)
	assert.Empty(t, repo.documents)

	require.Len(t, enqueuer.tasks, 1)
	assert.Equal(t, jobs.TaskDocumentPurge, enqueuer.tasks[0].Type())
	var payload jobs.DocumentPurgePayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
	assert.Equal(t, []string{"documents/x/contract.pdf"}, payload.Paths)
}

func TestDeleteRelationRollsBackOnFailure(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)
	ctx := context.Background()

	rel := seedRelation(t, repo)
	_, err := repo.CreateNote(ctx, Note{RelationID: rel.ID, Title: "Call", Content: "notes"})
	require.NoError(t, err)
	_, err = repo.CreateContactPerson(ctx, ContactPerson{RelationID: rel.ID, Name: "Jan"})
	require.NoError(t, err)

	injected := assert.AnError
	repo.failures["DeleteContactPersonsByRelation"] = injected

	err = svc.DeleteRelation(ctx, rel.ID)
	require.ErrorIs(t, err, injected)

	// The notes delete ran before the failure; the rollback restores it.
	assert.Len(t, repo.relations, 1)
	assert.Len(t, repo.notes, 1)
	assert.Len(t, repo.contacts, 1)
}

func TestDeleteRelationNotFound(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)

	err := svc.DeleteRelation(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRelationPatchesOnlySuppliedFields(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)
	ctx := context.Background()

	email := "info@acme.nl"
	created, err := repo.CreateRelation(ctx, Relation{ShortName: "ACME", Name: "Acme Corporation", Email: &email})
	require.NoError(t, err)

	updated, err := svc.UpdateRelation(ctx, created.ID, map[string]any{"name": "Acme Holding BV"})
	require.NoError(t, err)

	assert.Equal(t, "Acme Holding BV", updated.Name)
	assert.Equal(t, "ACME", updated.ShortName)
	require.NotNil(t, updated.Email)
	assert.Equal(t, email, *updated.Email)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestUpdateRelationClearsNullableField(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)
	ctx := context.Background()

	email := "info@acme.nl"
	created, err := repo.CreateRelation(ctx, Relation{ShortName: "ACME", Name: "Acme Corporation", Email: &email})
	require.NoError(t, err)

	updated, err := svc.UpdateRelation(ctx, created.ID, map[string]any{"email": nil})
	require.NoError(t, err)
	assert.Nil(t, updated.Email)
}

func TestUpdateRelationEmptyPatchReturnsCurrent(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)
	ctx := context.Background()

	rel := seedRelation(t, repo)

	got, err := svc.UpdateRelation(ctx, rel.ID, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, rel.ID, got.ID)
	assert.Equal(t, rel.UpdatedAt, got.UpdatedAt)
}

func TestUpdateRelationCoercesPaymentTerm(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)
	ctx := context.Background()

	rel := seedRelation(t, repo)

	updated, err := svc.UpdateRelation(ctx, rel.ID, map[string]any{"paymentTerm": float64(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.PaymentTerm)
}

func TestSetMainContactReassigns(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)
	ctx := context.Background()

	rel := seedRelation(t, repo)
	first, err := repo.CreateContactPerson(ctx, ContactPerson{RelationID: rel.ID, Name: "Jan", IsMainContact: true})
	require.NoError(t, err)
	second, err := repo.CreateContactPerson(ctx, ContactPerson{RelationID: rel.ID, Name: "Piet"})
	require.NoError(t, err)

	require.NoError(t, svc.SetMainContact(ctx, rel.ID, second.ID))

	assert.False(t, repo.contacts[first.ID].IsMainContact)
	assert.True(t, repo.contacts[second.ID].IsMainContact)

	main, err := svc.GetMainContact(ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, main.ID)
}

func TestSetMainContactForeignContactRollsBack(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)
	ctx := context.Background()

	rel := seedRelation(t, repo)
	other := seedRelation(t, repo)
	current, err := repo.CreateContactPerson(ctx, ContactPerson{RelationID: rel.ID, Name: "Jan", IsMainContact: true})
	require.NoError(t, err)
	foreign, err := repo.CreateContactPerson(ctx, ContactPerson{RelationID: other.ID, Name: "Piet"})
	require.NoError(t, err)

	err = svc.SetMainContact(ctx, rel.ID, foreign.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// The clear step must have been rolled back.
	assert.True(t, repo.contacts[current.ID].IsMainContact)
	assert.False(t, repo.contacts[foreign.ID].IsMainContact)
}

func TestCreateContactPersonRequiresRelation(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)

	_, err := svc.CreateContactPerson(context.Background(), uuid.New(), CreateContactPersonRequest{Name: "Jan"})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, repo.contacts)
}

func TestUploadDocumentStoresBlobAndRow(t *testing.T) {
	repo := newMockRepository()
	blobs := newMemBlobStore()
	svc := newTestService(repo, blobs, nil)
	ctx := context.Background()

	rel := seedRelation(t, repo)

	doc, err := svc.UploadDocument(ctx, rel.ID, CreateDocumentRequest{Name: "Contract"},
		"contract.pdf", 11, "application/pdf", strings.NewReader("pdf content"))
	require.NoError(t, err)

	assert.Equal(t, "Contract", doc.Name)
	assert.Equal(t, "file", doc.Type)
	require.NotNil(t, doc.MimeType)
	assert.Equal(t, "application/pdf", *doc.MimeType)
	assert.True(t, strings.HasPrefix(doc.Path, "documents/"+rel.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(doc.Path, ".pdf"))

	assert.Equal(t, []byte("pdf content"), blobs.blobs[doc.Path])
	assert.Len(t, repo.documents, 1)
}

func TestUploadDocumentRemovesBlobWhenInsertFails(t *testing.T) {
	repo := newMockRepository()
	blobs := newMemBlobStore()
	svc := newTestService(repo, blobs, nil)
	ctx := context.Background()

	rel := seedRelation(t, repo)
	repo.failures["CreateDocument"] = assert.AnError

	_, err := svc.UploadDocument(ctx, rel.ID, CreateDocumentRequest{Name: "Contract"},
		"contract.pdf", 11, "application/pdf", strings.NewReader("pdf content"))
	require.Error(t, err)

	assert.Empty(t, blobs.blobs)
	require.Len(t, blobs.removed, 1)
}

func TestDeleteDocumentRemovesBlob(t *testing.T) {
	repo := newMockRepository()
	blobs := newMemBlobStore()
	svc := newTestService(repo, blobs, nil)
	ctx := context.Background()

	rel := seedRelation(t, repo)
	doc, err := svc.UploadDocument(ctx, rel.ID, CreateDocumentRequest{Name: "Contract"},
		"contract.pdf", 11, "application/pdf", strings.NewReader("pdf content"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(ctx, doc.ID))
	assert.Empty(t, repo.documents)
	assert.Empty(t, blobs.blobs)
}

func TestDocumentURLSignsStoredPath(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)
	ctx := context.Background()

	rel := seedRelation(t, repo)
	doc, err := repo.CreateDocument(ctx, Document{RelationID: rel.ID, Name: "contract.pdf", Type: "file", Path: "documents/a/b.pdf"})
	require.NoError(t, err)

	signed, err := svc.DocumentURL(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "/files/documents/a/b.pdf?"))
	assert.Contains(t, signed, "sig=")
	assert.Contains(t, signed, "expires=")
}

func TestCreateNoteRequiresRelation(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMemBlobStore(), nil)

	_, err := svc.CreateNote(context.Background(), uuid.New(), CreateNoteRequest{Title: "Call", Content: "x"})
	require.ErrorIs(t, err, ErrNotFound)
}
