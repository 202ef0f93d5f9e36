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
)

var (
	once     sync.Once
	validate *govalidator.Validate
	trans    ut.Translator
)

// Setup registers English translations on Gin's binding engine and on the
// standalone validator used outside HTTP handlers. Safe to call more than once.
func Setup() {
	once.Do(func() {
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")

		validate = govalidator.New(govalidator.WithRequiredStructEnabled())
		configure(validate)

		if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
			configure(v)
		}
	})
}

func configure(v *govalidator.Validate) {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	en_translations.RegisterDefaultTranslations(v, trans)
}

// Struct validates v outside of a Gin request, e.g. backend-supplied test
// configuration or decoded WebSocket messages. Returns nil when v is valid.
func Struct(v interface{}) map[string]string {
	Setup()
	if err := validate.Struct(v); err != nil {
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
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// BindQuery binds query parameters into dst and checks its validate tags.
func BindQuery(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return Struct(dst)
}
