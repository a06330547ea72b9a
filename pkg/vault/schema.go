package vault

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Classification is the non-secret envelope of a credential.
type Classification struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	Category    string     `json:"category" validate:"required,max=100,ne=*"`
	Environment string     `json:"environment" validate:"required,max=100,ne=*"`
	IsPersonal  bool       `json:"isPersonal"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

const tagAPIKeyOrClient = "apikey_or_client"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(apiOAuthRule, APIOAuth{})
	return v
}

// apiOAuthRule requires an API key or both client ID and client secret.
func apiOAuthRule(sl validator.StructLevel) {
	p := sl.Current().Interface().(APIOAuth)
	if p.APIKey != "" || (p.ClientID != "" && p.ClientSecret != "") {
		return
	}
	sl.ReportError(p.APIKey, "apiKey", "APIKey", tagAPIKeyOrClient, "")
}

// check validates a classification and, when given, a payload. The expiry
// must lie in the future when checkExpiry is set.
func check(now time.Time, cls Classification, payload Payload, checkExpiry bool) error {
	fields := map[string]string{}

	if err := collect(cls, fields); err != nil {
		return err
	}
	if payload != nil {
		if err := collect(payload, fields); err != nil {
			return err
		}
	}

	if cls.ExpiresAt != nil && !cls.ExpiresAt.After(now) && checkExpiry {
		fields["expiresAt"] = "must be in the future"
	}
	if f, ok := payload.(*File); ok {
		if len(f.Content) == 0 && f.ContentRef == "" {
			fields["content"] = "is required"
		}
		if f.Size < 0 {
			fields["size"] = "must not be negative"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// collect runs struct validation and adds failures to fields. Errors other
// than validation failures are returned.
func collect(s interface{}, fields map[string]string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe)
		}
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "ne":
		return "must not be " + fe.Param()
	case tagAPIKeyOrClient:
		return "requires an API key or both client ID and client secret"
	}
	return "is invalid"
}
