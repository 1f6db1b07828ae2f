package relations

type CreateRelationRequest struct {
	ShortName string  `json:"shortName" validate:"required,min=2,max=50"`
	Name      string  `json:"name" validate:"required,min=2,max=100"`
	Telephone *string `json:"telephone,omitempty" validate:"omitempty,phone"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Website   *string `json:"website,omitempty" validate:"omitempty,url"`
	KvkNumber *string `json:"kvkNumber,omitempty" validate:"omitempty,kvk"`
	VatNumber *string `json:"vatNumber,omitempty" validate:"omitempty,vat"`

	Street      *string `json:"street,omitempty"`
	HouseNumber *string `json:"houseNumber,omitempty"`
	Postcode    *string `json:"postcode,omitempty" validate:"omitempty,nl_postcode"`
	Place       *string `json:"place,omitempty"`
	Land        *string `json:"land,omitempty"`

	VisitingStreet      *string `json:"visitingStreet,omitempty"`
	VisitingHouseNumber *string `json:"visitingHouseNumber,omitempty"`
	VisitingPostcode    *string `json:"visitingPostcode,omitempty" validate:"omitempty,nl_postcode"`
	VisitingPlace       *string `json:"visitingPlace,omitempty"`
	VisitingLand        *string `json:"visitingLand,omitempty"`

	MailingStreet      *string `json:"mailingStreet,omitempty"`
	MailingHouseNumber *string `json:"mailingHouseNumber,omitempty"`
	MailingPostcode    *string `json:"mailingPostcode,omitempty" validate:"omitempty,nl_postcode"`
	MailingPlace       *string `json:"mailingPlace,omitempty"`
	MailingLand        *string `json:"mailingLand,omitempty"`

	BankAccount   *string `json:"bankAccount,omitempty"`
	PaymentTerm   int     `json:"paymentTerm" validate:"gte=0"`
	CreditLimit   float64 `json:"creditLimit" validate:"gte=0"`
	InvoiceMethod *string `json:"invoiceMethod,omitempty"`
	Currency      *string `json:"currency,omitempty" validate:"omitempty,currency_code"`

	IsCustomer       bool    `json:"isCustomer"`
	IsSupplier       bool    `json:"isSupplier"`
	CustomerActivity *string `json:"customerActivity,omitempty"`
}

type CreateContactPersonRequest struct {
	Name       string  `json:"name" validate:"required"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Position   *string `json:"position,omitempty"`
	Department *string `json:"department,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

type CreateNoteRequest struct {
	Title     string  `json:"title" validate:"required"`
	Content   string  `json:"content" validate:"required"`
	Category  *string `json:"category,omitempty"`
	IsPrivate bool    `json:"isPrivate"`
	CreatedBy *string `json:"createdBy,omitempty"`
}

// CreateDocumentRequest carries the metadata part of a document upload.
// Path, size and mime type come from the blob store and the file itself.
type CreateDocumentRequest struct {
	Name        string  `json:"name" validate:"required"`
	Type        string  `json:"type"`
	Description *string `json:"description,omitempty"`
	UploadedBy  *string `json:"uploadedBy,omitempty"`
}

func (r CreateRelationRequest) toModel() Relation {
	return Relation{
		ShortName:           r.ShortName,
		Name:                r.Name,
		Telephone:           r.Telephone,
		Email:               r.Email,
		Website:             r.Website,
		KvkNumber:           r.KvkNumber,
		VatNumber:           r.VatNumber,
		Street:              r.Street,
		HouseNumber:         r.HouseNumber,
		Postcode:            r.Postcode,
		Place:               r.Place,
		Land:                r.Land,
		VisitingStreet:      r.VisitingStreet,
		VisitingHouseNumber: r.VisitingHouseNumber,
		VisitingPostcode:    r.VisitingPostcode,
		VisitingPlace:       r.VisitingPlace,
		VisitingLand:        r.VisitingLand,
		MailingStreet:       r.MailingStreet,
		MailingHouseNumber:  r.MailingHouseNumber,
		MailingPostcode:     r.MailingPostcode,
		MailingPlace:        r.MailingPlace,
		MailingLand:         r.MailingLand,
		BankAccount:         r.BankAccount,
		PaymentTerm:         r.PaymentTerm,
		CreditLimit:         r.CreditLimit,
		InvoiceMethod:       r.InvoiceMethod,
		Currency:            r.Currency,
		IsCustomer:          r.IsCustomer,
		IsSupplier:          r.IsSupplier,
		CustomerActivity:    r.CustomerActivity,
	}
}
