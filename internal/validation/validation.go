package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

const (
	notBlankTag        = "notblank"
	participantTypeTag = "participant_type"
	giverTypeTag       = "giver_type"
	questionTypeTag    = "question_type"
)

// Validator checks tagged input structs and reports failures as
// errdefs.ErrInvalidParameters.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() *Validator {
	v := validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(participantTypeTag, func(fl validator.FieldLevel) bool {
		return domain.ParticipantType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation(giverTypeTag, func(fl validator.FieldLevel) bool {
		return domain.ParticipantType(fl.Field().String()).IsValidGiver()
	})
	_ = v.RegisterValidation(questionTypeTag, func(fl validator.FieldLevel) bool {
		return domain.QuestionType(fl.Field().String()).IsValid()
	})

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, participantTypeTag, giverTypeTag, questionTypeTag} {
		_ = v.RegisterTranslation(tag, translator, noop, translateCustom)
	}

	return &Validator{validate: v, translator: translator}
}

// Struct validates s. The returned error wraps ErrInvalidParameters and
// lists every failing field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%v: %w", err, errdefs.ErrInvalidParameters)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(v.translator))
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), errdefs.ErrInvalidParameters)
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case participantTypeTag, giverTypeTag:
		return fmt.Sprintf("%s is not a valid participant type: %v", fe.Field(), fe.Value())
	case questionTypeTag:
		return fmt.Sprintf("%s is not a valid question type: %v", fe.Field(), fe.Value())
	default:
		return fe.Error()
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}
