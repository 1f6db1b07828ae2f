package relations

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/currency"
)

// PhonePattern is the canonical telephone policy: a permissive pattern
// accepting digits, +, -, parentheses and spaces, 6 to 20 characters.
const PhonePattern = `^[0-9+\-() ]{6,20}$`

var (
	phoneRegexp    = regexp.MustCompile(PhonePattern)
	kvkRegexp      = regexp.MustCompile(`^\d{8}$`)
	vatRegexp      = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]+$`)
	postcodeRegexp = regexp.MustCompile(`(?i)^[1-9][0-9]{3} ?[A-Z]{2}$`)
)

// reservedPostcodeSuffixes are letter combinations excluded from the Dutch
// postcode grammar.
var reservedPostcodeSuffixes = map[string]struct{}{
	"SA": {},
	"SD": {},
	"SS": {},
}

// FieldErrors maps field names to human-readable error messages. An empty
// map means the payload is valid.
type FieldErrors map[string]string

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phoneRegexp.MatchString(fl.Field().String())
	})
	mustRegister(v, "kvk", func(fl validator.FieldLevel) bool {
		return kvkRegexp.MatchString(fl.Field().String())
	})
	mustRegister(v, "vat", func(fl validator.FieldLevel) bool {
		return vatRegexp.MatchString(fl.Field().String())
	})
	mustRegister(v, "nl_postcode", func(fl validator.FieldLevel) bool {
		return isValidDutchPostcode(fl.Field().String())
	})
	mustRegister(v, "currency_code", func(fl validator.FieldLevel) bool {
		_, err := currency.ParseISO(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func isValidDutchPostcode(value string) bool {
	if !postcodeRegexp.MatchString(value) {
		return false
	}
	suffix := strings.ToUpper(value[len(value)-2:])
	_, reserved := reservedPostcodeSuffixes[suffix]
	return !reserved
}

var relationMessages = map[string]string{
	"shortName":        "Short name must be between 2 and 50 characters",
	"name":             "Name must be between 2 and 100 characters",
	"email":            "Invalid email format",
	"telephone":        "Phone number should be between 6 and 20 digits",
	"website":          "Invalid website URL",
	"kvkNumber":        "KVK number must be 8 digits",
	"vatNumber":        "Invalid VAT number format",
	"postcode":         "Invalid postcode format",
	"visitingPostcode": "Invalid postcode format",
	"mailingPostcode":  "Invalid postcode format",
	"currency":         "Invalid currency code",
	"paymentTerm":      "Payment term must be zero or positive",
	"creditLimit":      "Credit limit must be zero or positive",
}

var contactPersonMessages = map[string]string{
	"name":  "Name is required",
	"email": "Invalid email format",
	"phone": "Phone number should be between 6 and 20 digits",
}

var noteMessages = map[string]string{
	"title":   "Title is required",
	"content": "Content is required",
}

var documentMessages = map[string]string{
	"name": "Document name is required",
}

// relationPatchRules holds the format rule for each string-typed patchable
// field. Fields without an entry are free-form text.
var relationPatchRules = map[string]string{
	"shortName":        "required,min=2,max=50",
	"name":             "required,min=2,max=100",
	"telephone":        "phone",
	"email":            "email",
	"website":          "url",
	"kvkNumber":        "kvk",
	"vatNumber":        "vat",
	"postcode":         "nl_postcode",
	"visitingPostcode": "nl_postcode",
	"mailingPostcode":  "nl_postcode",
	"currency":         "currency_code",
}

func structErrors(err error, messages map[string]string) FieldErrors {
	errs := FieldErrors{}
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["general"] = "Invalid payload"
		return errs
	}
	for _, fe := range verrs {
		if msg, ok := messages[fe.Field()]; ok {
			errs[fe.Field()] = msg
		} else {
			errs[fe.Field()] = "Invalid value"
		}
	}
	return errs
}

// ValidateRelationCreate checks a new-relation payload. shortName and name
// are mandatory; every other field is optional but format-checked.
func ValidateRelationCreate(req CreateRelationRequest) FieldErrors {
	return structErrors(validate.Struct(req), relationMessages)
}

// ValidateRelationPatch checks a partial update. Every field is optional,
// but any field present must satisfy its rule; the mandatory shortName and
// name fields cannot be cleared.
func ValidateRelationPatch(patch map[string]any) FieldErrors {
	errs := FieldErrors{}
	for field, raw := range patch {
		switch field {
		case "paymentTerm", "creditLimit":
			num, ok := raw.(float64)
			if !ok || num < 0 {
				errs[field] = relationMessages[field]
			}
		case "isCustomer", "isSupplier":
			if _, ok := raw.(bool); !ok {
				errs[field] = "Invalid value"
			}
		default:
			if msg := checkStringField(field, raw, relationPatchRules, relationMessages); msg != "" {
				errs[field] = msg
			}
		}
	}
	return errs
}

// checkStringField validates one string-typed patch value against its rule.
// Returns an empty string when the value is acceptable.
func checkStringField(field string, raw any, rules, messages map[string]string) string {
	rule := rules[field]
	required := strings.HasPrefix(rule, "required")

	message := messages[field]
	if message == "" {
		message = "Invalid value"
	}

	switch v := raw.(type) {
	case nil:
		// Explicit null clears the column; mandatory fields cannot be cleared.
		if required {
			return message
		}
		return ""
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			if required {
				return message
			}
			return ""
		}
		if rule == "" {
			return ""
		}
		if err := validate.Var(trimmed, rule); err != nil {
			return message
		}
		return ""
	default:
		return message
	}
}

// ValidateContactPersonCreate checks a new contact person payload.
func ValidateContactPersonCreate(req CreateContactPersonRequest) FieldErrors {
	return structErrors(validate.Struct(req), contactPersonMessages)
}

var contactPersonPatchRules = map[string]string{
	"name":  "required",
	"email": "email",
	"phone": "phone",
}

// ValidateContactPersonPatch checks a partial contact person update.
func ValidateContactPersonPatch(patch map[string]any) FieldErrors {
	errs := FieldErrors{}
	for field, raw := range patch {
		if msg := checkStringField(field, raw, contactPersonPatchRules, contactPersonMessages); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}

// ValidateNoteCreate checks a new note payload.
func ValidateNoteCreate(req CreateNoteRequest) FieldErrors {
	return structErrors(validate.Struct(req), noteMessages)
}

var notePatchRules = map[string]string{
	"title":   "required",
	"content": "required",
}

// ValidateNotePatch checks a partial note update.
func ValidateNotePatch(patch map[string]any) FieldErrors {
	errs := FieldErrors{}
	for field, raw := range patch {
		if field == "isPrivate" {
			if _, ok := raw.(bool); !ok {
				errs[field] = "Invalid value"
			}
			continue
		}
		if msg := checkStringField(field, raw, notePatchRules, noteMessages); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}

// ValidateDocumentCreate checks the metadata part of a document upload.
func ValidateDocumentCreate(req CreateDocumentRequest) FieldErrors {
	return structErrors(validate.Struct(req), documentMessages)
}

var documentPatchRules = map[string]string{
	"name": "required",
}

// ValidateDocumentPatch checks a partial document metadata update.
func ValidateDocumentPatch(patch map[string]any) FieldErrors {
	errs := FieldErrors{}
	for field, raw := range patch {
		if msg := checkStringField(field, raw, documentPatchRules, documentMessages); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}
