package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FailureKind classifies why a payload was rejected. Callers log and count
// a body that never decoded differently from a field that failed its rule.
type FailureKind string

const (
	// FailureMalformed means the body is not a JSON object.
	FailureMalformed FailureKind = "malformed_json"
	// FailureMissing means a required field is absent or empty.
	FailureMissing FailureKind = "missing_field"
	// FailureFormat means a field is present but violates its format rule.
	FailureFormat FailureKind = "invalid_format"
)

// ValidationError is a classified payload rejection.
type ValidationError struct {
	Kind   FailureKind
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s %s", e.Kind, e.Field, e.Detail)
}

// payload mirrors the webhook body schema. Validation rules are evaluated in
// field declaration order and the first violation wins, so rejections are
// deterministic for any given body.
type payload struct {
	MessageID string  `json:"message_id" validate:"required"`
	From      string  `json:"from" validate:"required,msisdn"`
	To        string  `json:"to" validate:"required,msisdn"`
	TS        string  `json:"ts" validate:"required,utcz"`
	Text      *string `json:"text" validate:"omitempty,max=4096"`
}

// msisdn is deliberately looser than full E.164: a plus sign followed by one
// or more digits, with no length cap.
var msisdnRE = regexp.MustCompile(`^\+[0-9]+$`)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()

	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return msisdnRE.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("utcz", func(fl validator.FieldLevel) bool {
		_, err := ParseTS(fl.Field().String())
		return err == nil
	})

	return v
}

func ruleDetail(tag string) string {
	switch tag {
	case "msisdn":
		return "must be a plus sign followed by digits"
	case "utcz":
		return "must be ISO-8601 UTC with a Z suffix"
	case "max":
		return "must be at most 4096 characters"
	default:
		return "is invalid"
	}
}

// ParsePayload decodes and validates a raw webhook body.
//
// The returned Message carries the parsed UTC timestamp; Seq is zero until
// the store assigns it.
func ParsePayload(raw []byte) (Message, *ValidationError) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Message{}, &ValidationError{
			Kind:   FailureMalformed,
			Detail: "body is not a valid JSON object",
		}
	}

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return Message{}, &ValidationError{Kind: FailureMalformed, Detail: err.Error()}
		}

		fe := verrs[0]
		if fe.Tag() == "required" {
			return Message{}, &ValidationError{
				Kind:   FailureMissing,
				Field:  fe.Field(),
				Detail: "is required",
			}
		}
		return Message{}, &ValidationError{
			Kind:   FailureFormat,
			Field:  fe.Field(),
			Detail: ruleDetail(fe.Tag()),
		}
	}

	ts, err := ParseTS(p.TS)
	if err != nil {
		// Unreachable in practice: the utcz rule already parsed it.
		return Message{}, &ValidationError{Kind: FailureFormat, Field: "ts", Detail: ruleDetail("utcz")}
	}

	return Message{
		MessageID: p.MessageID,
		From:      p.From,
		To:        p.To,
		TS:        ts,
		Text:      p.Text,
	}, nil
}
