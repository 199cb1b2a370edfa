// Package validate はフォーム入力の検証をgo-playground/validatorで行い、
// 失敗をmodel.APIErrorに変換する。
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/jobboard/internal/model"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// エラーメッセージにはフォームのフィールド名を使う
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return val
}

// Struct はvalidateタグに従って構造体を検証する。
// 最初の違反を入力検証エラーとして返す。
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return model.NewValidationError(fe.Field(), reason(fe))
	}
	return fmt.Errorf("failed to validate input: %w", err)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "必須項目です"
	case "email":
		return "メールアドレスの形式ではありません"
	case "max":
		return fmt.Sprintf("%s文字以内で入力してください", fe.Param())
	case "min":
		return fmt.Sprintf("%s文字以上で入力してください", fe.Param())
	case "oneof":
		return fmt.Sprintf("%s のいずれかを指定してください", fe.Param())
	case "datetime":
		return fmt.Sprintf("%s の形式で入力してください", fe.Param())
	case "gte", "lte":
		return "範囲外の値です"
	default:
		return fmt.Sprintf("'%s' の検証に失敗しました", fe.Tag())
	}
}
