package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

var (
	// trans is the singleton English translator for validation errors.
	trans ut.Translator

	standalone     *govalidator.Validate
	standaloneOnce sync.Once
)

// Setup registers the validator with English translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		configure(v)
	}
}

// configure applies the JSON field naming, custom tags and English
// translations to v.
func configure(v *govalidator.Validate) {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("question_type", func(fl govalidator.FieldLevel) bool {
		_, ok := model.ParseQuestionType(fl.Field().String())
		return ok
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	_ = v.RegisterTranslation("question_type", trans,
		func(t ut.Translator) error {
			return t.Add("question_type", "{0} must be one of SINGLE_CHOICE, MULTI_CHOICE, CODING (or MCQ, MSQ, CODE)", true)
		},
		func(t ut.Translator, fe govalidator.FieldError) string {
			msg, _ := t.T("question_type", fe.Field())
			return msg
		},
	)
}

// Struct validates s against its binding tags outside of a request, for
// documents read from files.
func Struct(s interface{}) map[string]string {
	standaloneOnce.Do(func() {
		standalone = govalidator.New()
		standalone.SetTagName("binding")
		configure(standalone)
	})
	if err := standalone.Struct(s); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) && trans != nil {
		for _, fe := range ve {
			fields[fieldPath(fe)] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// fieldPath strips the root struct name from the namespace so nested
// errors read like "questions[0].question_type".
func fieldPath(fe govalidator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
