// Package validation checks form input before any request reaches the
// backend. A non-empty Errors map means the form must be shown again.
package validation

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	MinPasswordLength = 8

	notBlankTag = "notblank"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// messages holds the wording shown for a field and failed tag. Anything
	// missing falls back to the validator's English translation.
	messages = map[string]string{
		"full_name.notblank":    "Full name is required",
		"email.notblank":        "Email is required",
		"email.email":           "Please enter a valid email address",
		"phone_number.notblank": "Phone number is required",
		"description.notblank":  "Description is required",
		"screenshot.eq":         "Screenshot is required",
		"section.oneof":         "Please choose a valid section",
		"severity.oneof":        "Please choose a valid severity",
		"index_number.notblank": "Index number is required",
		"password.notblank":     "Password is required",
		"code.notblank":         "Verification code is required",
		"charge_name.notblank":  "Charge name is required",
		"amount.notblank":       "Amount is required",
		"amount.numeric":        "Amount must be a number",
		"payment_method.oneof":  "Please choose a payment method",
	}
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report fields by their form names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return false
	})
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Errors maps form field names to messages.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Has reports whether field failed validation.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Struct validates v and converts failures to Errors. It returns nil when v
// is valid.
func Struct(v any) Errors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Errors{"form": err.Error()}
	}

	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
			out[fe.Field()] = msg
			continue
		}
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: messages["email.notblank"]}
	}
	if err := validate.Var(email, "email"); err != nil {
		return ValidationError{Field: "email", Message: messages["email.email"]}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "Password is required"}
	}
	if len(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: "Password must be at least 8 characters long"}
	}
	return nil
}

// ValidatePasswordChange runs the checks of the change-password step in
// order: confirmation matches, minimum length, differs from the old one.
func ValidatePasswordChange(oldPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ValidationError{Field: "confirm_password", Message: "New passwords do not match"}
	}
	if len(newPassword) < MinPasswordLength {
		return ValidationError{Field: "new_password", Message: "New password must be at least 8 characters long"}
	}
	if newPassword == oldPassword {
		return ValidationError{Field: "new_password", Message: "New password must be different from current password"}
	}
	return nil
}

// ValidateCode checks that a verification code was entered.
func ValidateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return ValidationError{Field: "code", Message: messages["code.notblank"]}
	}
	return nil
}

// Login methods
const (
	LoginByEmail = "email"
	LoginByIndex = "index"
)

// LoginForm is the student sign-in form.
type LoginForm struct {
	Method      string `form:"method"`
	Email       string `form:"email"`
	IndexNumber string `form:"index_number"`
	Password    string `form:"password" validate:"notblank"`
}

// ValidateLogin checks the identifier for the chosen method and the
// password.
func ValidateLogin(f LoginForm) Errors {
	errs := Struct(f)
	if errs == nil {
		errs = Errors{}
	}

	switch f.Method {
	case LoginByIndex:
		if strings.TrimSpace(f.IndexNumber) == "" {
			errs["index_number"] = messages["index_number.notblank"]
		}
	default:
		if err := ValidateEmail(f.Email); err != nil {
			errs["email"] = err.Error()
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// TicketForm is the support ticket form.
type TicketForm struct {
	FullName      string `form:"full_name" validate:"notblank"`
	Email         string `form:"email" validate:"notblank"`
	PhoneNumber   string `form:"phone_number" validate:"notblank"`
	Section       string `form:"section" validate:"omitempty,oneof=authentication reservation admissions others"`
	Severity      string `form:"severity" validate:"omitempty,oneof=low medium high critical"`
	Description   string `form:"description" validate:"notblank"`
	HasScreenshot bool   `form:"screenshot" validate:"eq=true"`
}

// ValidateTicket reports every missing required field of a ticket.
func ValidateTicket(f TicketForm) Errors {
	return Struct(f)
}

// ChargeForm is the add or edit custom charge form.
type ChargeForm struct {
	ChargeName  string `form:"charge_name" validate:"notblank"`
	Description string `form:"description"`
	Amount      string `form:"amount" validate:"notblank,numeric"`
}

// ValidateCharge checks a custom charge and returns its parsed amount.
func ValidateCharge(f ChargeForm) (float64, Errors) {
	if errs := Struct(f); errs != nil {
		return 0, errs
	}
	amount, _ := strconv.ParseFloat(strings.TrimSpace(f.Amount), 64)
	if amount <= 0 {
		return 0, Errors{"amount": "Amount must be greater than zero"}
	}
	return amount, nil
}

// PaymentForm is the make-a-payment form.
type PaymentForm struct {
	Amount        string `form:"amount" validate:"notblank,numeric"`
	PaymentMethod string `form:"payment_method" validate:"oneof=mobile_money card bank_transfer cash"`
}

// ValidatePayment checks a payment and returns its parsed amount.
func ValidatePayment(f PaymentForm) (float64, Errors) {
	if errs := Struct(f); errs != nil {
		return 0, errs
	}
	amount, _ := strconv.ParseFloat(strings.TrimSpace(f.Amount), 64)
	if amount <= 0 {
		return 0, Errors{"amount": "Amount must be greater than zero"}
	}
	return amount, nil
}
