package handler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Trans 参数错误提示的翻译器，InitTrans 之前为 nil
var Trans ut.Translator

var translationRegistrars = map[string]func(*validator.Validate, ut.Translator) error{
	"en": en_translations.RegisterDefaultTranslations,
	"zh": zh_translations.RegisterDefaultTranslations,
}

// InitTrans 让 REST 参数和长连接事件负载的校验错误按 json 字段名输出，
// 并注册 locale 对应的提示文案，不支持的 locale 使用英文
func InitTrans(locale string) error {
	if binding.Validator == nil {
		binding.Validator = newBindingValidator()
	}
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	v.RegisterTagNameFunc(jsonFieldName)

	register, ok := translationRegistrars[locale]
	if !ok {
		locale, register = "en", en_translations.RegisterDefaultTranslations
	}
	trans, found := ut.New(en.New(), en.New(), zh.New()).GetTranslator(locale)
	if !found {
		return fmt.Errorf("translator %s not found", locale)
	}
	if err := register(v, trans); err != nil {
		return err
	}
	Trans = trans
	return nil
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// RemoveTopStruct "SendMessageRequest.receiverId" -> "receiverId"
func RemoveTopStruct(fields map[string]string) map[string]string {
	res := make(map[string]string, len(fields))
	for field, msg := range fields {
		if _, name, ok := strings.Cut(field, "."); ok {
			field = name
		}
		res[field] = msg
	}
	return res
}

// bindingValidator gin 未提供默认校验器时使用，tag 名同为 binding
type bindingValidator struct {
	validate *validator.Validate
}

func newBindingValidator() *bindingValidator {
	v := validator.New()
	v.SetTagName("binding")
	return &bindingValidator{validate: v}
}

func (b *bindingValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	return b.validate.Struct(obj)
}

func (b *bindingValidator) Engine() any {
	return b.validate
}
