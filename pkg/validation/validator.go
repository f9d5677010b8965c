// Package validation 提供基于 go-playground/validator v10 的结构体校验。
// 校验器为线程安全的单例，错误中的字段名取自 json 标签（即目录列名）。
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError 是单个字段的校验失败
type FieldError struct {
	Field string // json 字段名
	Tag   string // 失败的校验规则，如 required
}

func (e FieldError) Error() string {
	return "field " + e.Field + " failed on " + e.Tag
}

// Errors 是一次校验的全部字段错误
type Errors []FieldError

func (es Errors) Error() string {
	msgs := make([]string, 0, len(es))
	for _, e := range es {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validator 返回单例校验器
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidateStruct 校验结构体；失败时返回 Errors（按字段声明顺序）。
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}
	return out
}

// FirstField 返回第一个失败字段的名称，err 不是校验错误时返回空串。
func FirstField(err error) string {
	var es Errors
	if errors.As(err, &es) && len(es) > 0 {
		return es[0].Field
	}
	return ""
}
