package relations

import (
	"time"

	"github.com/google/uuid"
)

// Relation is the aggregate root representing a customer/supplier organisation.
type Relation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ShortName string    `json:"shortName" db:"short_name"`
	Name      string    `json:"name" db:"name"`
	Telephone *string   `json:"telephone,omitempty" db:"telephone"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Website   *string   `json:"website,omitempty" db:"website"`
	KvkNumber *string   `json:"kvkNumber,omitempty" db:"kvk_number"`
	VatNumber *string   `json:"vatNumber,omitempty" db:"vat_number"`

	Street      *string `json:"street,omitempty" db:"street"`
	HouseNumber *string `json:"houseNumber,omitempty" db:"house_number"`
	Postcode    *string `json:"postcode,omitempty" db:"postcode"`
	Place       *string `json:"place,omitempty" db:"place"`
	Land        *string `json:"land,omitempty" db:"land"`

	VisitingStreet      *string `json:"visitingStreet,omitempty" db:"visiting_street"`
	VisitingHouseNumber *string `json:"visitingHouseNumber,omitempty" db:"visiting_house_number"`
	VisitingPostcode    *string `json:"visitingPostcode,omitempty" db:"visiting_postcode"`
	VisitingPlace       *string `json:"visitingPlace,omitempty" db:"visiting_place"`
	VisitingLand        *string `json:"visitingLand,omitempty" db:"visiting_land"`

	MailingStreet      *string `json:"mailingStreet,omitempty" db:"mailing_street"`
	MailingHouseNumber *string `json:"mailingHouseNumber,omitempty" db:"mailing_house_number"`
	MailingPostcode    *string `json:"mailingPostcode,omitempty" db:"mailing_postcode"`
	MailingPlace       *string `json:"mailingPlace,omitempty" db:"mailing_place"`
	MailingLand        *string `json:"mailingLand,omitempty" db:"mailing_land"`

	BankAccount   *string `json:"bankAccount,omitempty" db:"bank_account"`
	PaymentTerm   int     `json:"paymentTerm" db:"payment_term"`
	CreditLimit   float64 `json:"creditLimit" db:"credit_limit"`
	InvoiceMethod *string `json:"invoiceMethod,omitempty" db:"invoice_method"`
	Currency      *string `json:"currency,omitempty" db:"currency"`

	IsCustomer       bool    `json:"isCustomer" db:"is_customer"`
	IsSupplier       bool    `json:"isSupplier" db:"is_supplier"`
	CustomerActivity *string `json:"customerActivity,omitempty" db:"customer_activity"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ContactPerson belongs to exactly one relation.
type ContactPerson struct {
	ID            uuid.UUID `json:"id" db:"id"`
	RelationID    uuid.UUID `json:"relationId" db:"relation_id"`
	Name          string    `json:"name" db:"name"`
	Email         *string   `json:"email,omitempty" db:"email"`
	Phone         *string   `json:"phone,omitempty" db:"phone"`
	Position      *string   `json:"position,omitempty" db:"position"`
	Department    *string   `json:"department,omitempty" db:"department"`
	IsMainContact bool      `json:"isMainContact" db:"is_main_contact"`
	Notes         *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Document references an uploaded file belonging to a relation. Path is an
// opaque reference assigned by the blob store, never by the caller.
type Document struct {
	ID          uuid.UUID `json:"id" db:"id"`
	RelationID  uuid.UUID `json:"relationId" db:"relation_id"`
	Name        string    `json:"name" db:"name"`
	Type        string    `json:"type" db:"type"`
	Path        string    `json:"path" db:"path"`
	Size        int64     `json:"size" db:"size"`
	MimeType    *string   `json:"mimeType,omitempty" db:"mime_type"`
	Description *string   `json:"description,omitempty" db:"description"`
	UploadedBy  *string   `json:"uploadedBy,omitempty" db:"uploaded_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Note is a free-form annotation on a relation.
type Note struct {
	ID         uuid.UUID `json:"id" db:"id"`
	RelationID uuid.UUID `json:"relationId" db:"relation_id"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	Category   *string   `json:"category,omitempty" db:"category"`
	IsPrivate  bool      `json:"isPrivate" db:"is_private"`
	CreatedBy  *string   `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// relationColumnsByField maps patchable JSON field names to their columns.
// Keys absent here are stripped from incoming patches.
var relationColumnsByField = map[string]string{
	"shortName":           "short_name",
	"name":                "name",
	"telephone":           "telephone",
	"email":               "email",
	"website":             "website",
	"kvkNumber":           "kvk_number",
	"vatNumber":           "vat_number",
	"street":              "street",
	"houseNumber":         "house_number",
	"postcode":            "postcode",
	"place":               "place",
	"land":                "land",
	"visitingStreet":      "visiting_street",
	"visitingHouseNumber": "visiting_house_number",
	"visitingPostcode":    "visiting_postcode",
	"visitingPlace":       "visiting_place",
	"visitingLand":        "visiting_land",
	"mailingStreet":       "mailing_street",
	"mailingHouseNumber":  "mailing_house_number",
	"mailingPostcode":     "mailing_postcode",
	"mailingPlace":        "mailing_place",
	"mailingLand":         "mailing_land",
	"bankAccount":         "bank_account",
	"paymentTerm":         "payment_term",
	"creditLimit":         "credit_limit",
	"invoiceMethod":       "invoice_method",
	"currency":            "currency",
	"isCustomer":          "is_customer",
	"isSupplier":          "is_supplier",
	"customerActivity":    "customer_activity",
}

var contactPersonColumnsByField = map[string]string{
	"name":          "name",
	"email":         "email",
	"phone":         "phone",
	"position":      "position",
	"department":    "department",
	"notes":         "notes",
}

var noteColumnsByField = map[string]string{
	"title":     "title",
	"content":   "content",
	"category":  "category",
	"isPrivate": "is_private",
}

var documentColumnsByField = map[string]string{
	"name":        "name",
	"type":        "type",
	"description": "description",
}
