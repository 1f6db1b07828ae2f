package relations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relatio-crm/relatio/internal/platform/db"
)

var (
	// ErrNotFound indicates the id does not resolve to a row.
	ErrNotFound = errors.New("record not found")
	// ErrNotCreated indicates the store reported zero rows written on insert.
	ErrNotCreated = errors.New("no record was created")
)

// Repository provides persistence for the relation aggregate and its
// dependents. Multi-step mutations run inside WithTx; the cascade order
// (notes, documents, contact persons, relation) and the main-contact
// clear-then-set both rely on it.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	ListRelations(ctx context.Context) ([]Relation, error)
	GetRelation(ctx context.Context, id uuid.UUID) (*Relation, error)
	CreateRelation(ctx context.Context, rel Relation) (*Relation, error)
	UpdateRelation(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteRelation(ctx context.Context, id uuid.UUID) error

	ListContactPersons(ctx context.Context, relationID uuid.UUID) ([]ContactPerson, error)
	GetContactPerson(ctx context.Context, id uuid.UUID) (*ContactPerson, error)
	GetMainContact(ctx context.Context, relationID uuid.UUID) (*ContactPerson, error)
	CreateContactPerson(ctx context.Context, person ContactPerson) (*ContactPerson, error)
	UpdateContactPerson(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteContactPerson(ctx context.Context, id uuid.UUID) error
	DeleteContactPersonsByRelation(ctx context.Context, relationID uuid.UUID) error
	ClearMainContact(ctx context.Context, relationID uuid.UUID) error
	SetMainContact(ctx context.Context, relationID, contactID uuid.UUID) error

	ListDocuments(ctx context.Context, relationID uuid.UUID) ([]Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	CreateDocument(ctx context.Context, doc Document) (*Document, error)
	UpdateDocument(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	DeleteDocumentsByRelation(ctx context.Context, relationID uuid.UUID) error

	ListNotes(ctx context.Context, relationID uuid.UUID) ([]Note, error)
	GetNote(ctx context.Context, id uuid.UUID) (*Note, error)
	CreateNote(ctx context.Context, note Note) (*Note, error)
	UpdateNote(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteNote(ctx context.Context, id uuid.UUID) error
	DeleteNotesByRelation(ctx context.Context, relationID uuid.UUID) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

// ---------------------------------------------------------------------------
// Relations

const relationColumns = `id, short_name, name, telephone, email, website, kvk_number, vat_number,
	street, house_number, postcode, place, land,
	visiting_street, visiting_house_number, visiting_postcode, visiting_place, visiting_land,
	mailing_street, mailing_house_number, mailing_postcode, mailing_place, mailing_land,
	bank_account, payment_term, credit_limit, invoice_method, currency,
	is_customer, is_supplier, customer_activity, created_at, updated_at`

// relationUpdateColumns fixes the order in which dynamic SET clauses are
// built; id and the server-set timestamps are never patchable.
var relationUpdateColumns = []string{
	"short_name", "name", "telephone", "email", "website", "kvk_number", "vat_number",
	"street", "house_number", "postcode", "place", "land",
	"visiting_street", "visiting_house_number", "visiting_postcode", "visiting_place", "visiting_land",
	"mailing_street", "mailing_house_number", "mailing_postcode", "mailing_place", "mailing_land",
	"bank_account", "payment_term", "credit_limit", "invoice_method", "currency",
	"is_customer", "is_supplier", "customer_activity",
}

func scanRelation(row pgx.Row) (*Relation, error) {
	var rel Relation
	err := row.Scan(
		&rel.ID, &rel.ShortName, &rel.Name, &rel.Telephone, &rel.Email, &rel.Website,
		&rel.KvkNumber, &rel.VatNumber,
		&rel.Street, &rel.HouseNumber, &rel.Postcode, &rel.Place, &rel.Land,
		&rel.VisitingStreet, &rel.VisitingHouseNumber, &rel.VisitingPostcode, &rel.VisitingPlace, &rel.VisitingLand,
		&rel.MailingStreet, &rel.MailingHouseNumber, &rel.MailingPostcode, &rel.MailingPlace, &rel.MailingLand,
		&rel.BankAccount, &rel.PaymentTerm, &rel.CreditLimit, &rel.InvoiceMethod, &rel.Currency,
		&rel.IsCustomer, &rel.IsSupplier, &rel.CustomerActivity,
		&rel.CreatedAt, &rel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *repository) ListRelations(ctx context.Context) ([]Relation, error) {
	query := fmt.Sprintf(`SELECT %s FROM relations ORDER BY created_at DESC`, relationColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Relation
	for rows.Next() {
		rel, err := scanRelation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rel)
	}
	return result, rows.Err()
}

func (r *repository) GetRelation(ctx context.Context, id uuid.UUID) (*Relation, error) {
	query := fmt.Sprintf(`SELECT %s FROM relations WHERE id = $1`, relationColumns)
	rel, err := scanRelation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rel, nil
}

func (r *repository) CreateRelation(ctx context.Context, rel Relation) (*Relation, error) {
	query := fmt.Sprintf(`
		INSERT INTO relations (
			id, short_name, name, telephone, email, website, kvk_number, vat_number,
			street, house_number, postcode, place, land,
			visiting_street, visiting_house_number, visiting_postcode, visiting_place, visiting_land,
			mailing_street, mailing_house_number, mailing_postcode, mailing_place, mailing_land,
			bank_account, payment_term, credit_limit, invoice_method, currency,
			is_customer, is_supplier, customer_activity, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23,
			$24, $25, $26, $27, $28,
			$29, $30, $31, NOW(), NOW()
		)
		RETURNING %s`, relationColumns)

	created, err := scanRelation(r.db.QueryRow(ctx, query,
		uuid.New(), rel.ShortName, rel.Name, rel.Telephone, rel.Email, rel.Website,
		rel.KvkNumber, rel.VatNumber,
		rel.Street, rel.HouseNumber, rel.Postcode, rel.Place, rel.Land,
		rel.VisitingStreet, rel.VisitingHouseNumber, rel.VisitingPostcode, rel.VisitingPlace, rel.VisitingLand,
		rel.MailingStreet, rel.MailingHouseNumber, rel.MailingPostcode, rel.MailingPlace, rel.MailingLand,
		rel.BankAccount, rel.PaymentTerm, rel.CreditLimit, rel.InvoiceMethod, rel.Currency,
		rel.IsCustomer, rel.IsSupplier, rel.CustomerActivity,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotCreated
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) UpdateRelation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.update(ctx, "relations", relationUpdateColumns, id, updates)
}

// DeleteRelation removes the relation row only. The transactional cascade
// over dependents is orchestrated by the service inside WithTx.
func (r *repository) DeleteRelation(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM relations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// update builds the SET clause from the patch, restricted to the allowed
// columns in their fixed order, and always refreshes updated_at.
func (r *repository) update(ctx context.Context, table string, allowed []string, id uuid.UUID, updates map[string]any) error {
	query := fmt.Sprintf("UPDATE %s SET updated_at = NOW()", table)
	var args []interface{}
	argPos := 1

	for _, column := range allowed {
		value, ok := updates[column]
		if !ok {
			continue
		}
		query += fmt.Sprintf(", %s = $%d", column, argPos)
		args = append(args, value)
		argPos++
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Contact persons

const contactPersonColumns = `id, relation_id, name, email, phone, position, department,
	is_main_contact, notes, created_at, updated_at`

var contactPersonUpdateColumns = []string{
	"name", "email", "phone", "position", "department", "notes",
}

func scanContactPerson(row pgx.Row) (*ContactPerson, error) {
	var person ContactPerson
	err := row.Scan(
		&person.ID, &person.RelationID, &person.Name, &person.Email, &person.Phone,
		&person.Position, &person.Department, &person.IsMainContact, &person.Notes,
		&person.CreatedAt, &person.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *repository) ListContactPersons(ctx context.Context, relationID uuid.UUID) ([]ContactPerson, error) {
	query := fmt.Sprintf(`SELECT %s FROM contact_persons WHERE relation_id = $1 ORDER BY created_at DESC`, contactPersonColumns)
	rows, err := r.db.Query(ctx, query, relationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ContactPerson
	for rows.Next() {
		person, err := scanContactPerson(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *person)
	}
	return result, rows.Err()
}

func (r *repository) GetContactPerson(ctx context.Context, id uuid.UUID) (*ContactPerson, error) {
	query := fmt.Sprintf(`SELECT %s FROM contact_persons WHERE id = $1`, contactPersonColumns)
	person, err := scanContactPerson(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return person, nil
}

func (r *repository) GetMainContact(ctx context.Context, relationID uuid.UUID) (*ContactPerson, error) {
	query := fmt.Sprintf(`SELECT %s FROM contact_persons WHERE relation_id = $1 AND is_main_contact LIMIT 1`, contactPersonColumns)
	person, err := scanContactPerson(r.db.QueryRow(ctx, query, relationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return person, nil
}

func (r *repository) CreateContactPerson(ctx context.Context, person ContactPerson) (*ContactPerson, error) {
	query := fmt.Sprintf(`
		INSERT INTO contact_persons (
			id, relation_id, name, email, phone, position, department,
			is_main_contact, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING %s`, contactPersonColumns)

	created, err := scanContactPerson(r.db.QueryRow(ctx, query,
		uuid.New(), person.RelationID, person.Name, person.Email, person.Phone,
		person.Position, person.Department, person.IsMainContact, person.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotCreated
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) UpdateContactPerson(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.update(ctx, "contact_persons", contactPersonUpdateColumns, id, updates)
}

func (r *repository) DeleteContactPerson(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contact_persons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteContactPersonsByRelation(ctx context.Context, relationID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM contact_persons WHERE relation_id = $1`, relationID)
	return err
}

func (r *repository) ClearMainContact(ctx context.Context, relationID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE contact_persons SET is_main_contact = FALSE, updated_at = NOW() WHERE relation_id = $1`,
		relationID)
	return err
}

// SetMainContact marks the named contact person as main. The relation id is
// part of the predicate so a contact of another relation cannot be promoted.
func (r *repository) SetMainContact(ctx context.Context, relationID, contactID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE contact_persons SET is_main_contact = TRUE, updated_at = NOW() WHERE id = $1 AND relation_id = $2`,
		contactID, relationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Documents

const documentColumns = `id, relation_id, name, type, path, size, mime_type, description,
	uploaded_by, created_at, updated_at`

var documentUpdateColumns = []string{"name", "type", "description"}

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.RelationID, &doc.Name, &doc.Type, &doc.Path, &doc.Size,
		&doc.MimeType, &doc.Description, &doc.UploadedBy,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repository) ListDocuments(ctx context.Context, relationID uuid.UUID) ([]Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE relation_id = $1 ORDER BY created_at DESC`, documentColumns)
	rows, err := r.db.Query(ctx, query, relationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *doc)
	}
	return result, rows.Err()
}

func (r *repository) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)
	doc, err := scanDocument(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *repository) CreateDocument(ctx context.Context, doc Document) (*Document, error) {
	query := fmt.Sprintf(`
		INSERT INTO documents (
			id, relation_id, name, type, path, size, mime_type, description,
			uploaded_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING %s`, documentColumns)

	created, err := scanDocument(r.db.QueryRow(ctx, query,
		uuid.New(), doc.RelationID, doc.Name, doc.Type, doc.Path, doc.Size,
		doc.MimeType, doc.Description, doc.UploadedBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotCreated
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) UpdateDocument(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.update(ctx, "documents", documentUpdateColumns, id, updates)
}

func (r *repository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteDocumentsByRelation(ctx context.Context, relationID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM documents WHERE relation_id = $1`, relationID)
	return err
}

// ---------------------------------------------------------------------------
// Notes

const noteColumns = `id, relation_id, title, content, category, is_private, created_by,
	created_at, updated_at`

var noteUpdateColumns = []string{"title", "content", "category", "is_private"}

func scanNote(row pgx.Row) (*Note, error) {
	var note Note
	err := row.Scan(
		&note.ID, &note.RelationID, &note.Title, &note.Content, &note.Category,
		&note.IsPrivate, &note.CreatedBy,
		&note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *repository) ListNotes(ctx context.Context, relationID uuid.UUID) ([]Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM notes WHERE relation_id = $1 ORDER BY created_at DESC`, noteColumns)
	rows, err := r.db.Query(ctx, query, relationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *note)
	}
	return result, rows.Err()
}

func (r *repository) GetNote(ctx context.Context, id uuid.UUID) (*Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM notes WHERE id = $1`, noteColumns)
	note, err := scanNote(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return note, nil
}

func (r *repository) CreateNote(ctx context.Context, note Note) (*Note, error) {
	query := fmt.Sprintf(`
		INSERT INTO notes (
			id, relation_id, title, content, category, is_private, created_by,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING %s`, noteColumns)

	created, err := scanNote(r.db.QueryRow(ctx, query,
		uuid.New(), note.RelationID, note.Title, note.Content, note.Category,
		note.IsPrivate, note.CreatedBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotCreated
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) UpdateNote(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.update(ctx, "notes", noteUpdateColumns, id, updates)
}

func (r *repository) DeleteNote(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteNotesByRelation(ctx context.Context, relationID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM notes WHERE relation_id = $1`, relationID)
	return err
}
