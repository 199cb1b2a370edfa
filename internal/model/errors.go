// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, not_found, pending, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation           = "VALIDATION_FAILED"
	ErrCodeDuplicateAccount     = "DUPLICATE_ACCOUNT"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeAgencyPending        = "AGENCY_PENDING"
	ErrCodeUnauthenticated      = "UNAUTHENTICATED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeJobNotFound          = "JOB_NOT_FOUND"
	ErrCodeApplicationNotFound  = "APPLICATION_NOT_FOUND"
	ErrCodeApplicationFinalized = "APPLICATION_FINALIZED"
	ErrCodeAlreadyApplied       = "ALREADY_APPLIED"
	ErrCodeStoryNotFound        = "STORY_NOT_FOUND"
	ErrCodeAgencyNotPending     = "AGENCY_NOT_PENDING"
	ErrCodeMissingCV            = "MISSING_CV"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeCVNotFound           = "CV_NOT_FOUND"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s (%s)", field, reason),
		Category: "validation",
		Action:   "入力内容を確認して再度送信してください。",
	}
}

// NewDuplicateAccountError はユーザー名またはメールアドレスの重複エラーを生成する。
// users と agencies のどちらと衝突した場合も同じエラーを返す。
func NewDuplicateAccountError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateAccount,
		Message:  "このユーザー名またはメールアドレスは既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名またはメールアドレスを指定してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewAgencyPendingError は承認待ちエージェンシーのログインエラーを生成する。
func NewAgencyPendingError() *APIError {
	return &APIError{
		Code:     ErrCodeAgencyPending,
		Message:  "このアカウントは管理者の承認待ちです。",
		Category: "pending",
		Action:   "承認されるまでお待ちください。",
	}
}

// NewUnauthenticatedError はログインが必要な操作への未認証アクセスのエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError はロール不一致のエラーを生成する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作は許可されていません: %s", reason),
		Category: "auth",
		Action:   "適切なアカウントでログインしてください。",
	}
}

// NewJobNotFoundError は求人が存在しない、または操作権限がない場合のエラーを生成する。
func NewJobNotFoundError(jobID int64) *APIError {
	return &APIError{
		Code:     ErrCodeJobNotFound,
		Message:  fmt.Sprintf("求人が見つからないか、操作する権限がありません: %d", jobID),
		Category: "not_found",
		Action:   "求人一覧から選択し直してください。",
	}
}

// NewApplicationNotFoundError は応募が存在しない、または操作権限がない場合のエラーを生成する。
func NewApplicationNotFoundError(applicationID int64) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("応募が見つからないか、操作する権限がありません: %d", applicationID),
		Category: "not_found",
		Action:   "応募者一覧から選択し直してください。",
	}
}

// NewCVNotFoundError は履歴書が存在しない、または閲覧権限がない場合のエラーを生成する。
func NewCVNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCVNotFound,
		Message:  "履歴書が見つからないか、閲覧する権限がありません",
		Category: "not_found",
		Action:   "応募者一覧から選択し直してください。",
	}
}

// NewApplicationFinalizedError は審査済みの応募を再度審査しようとした場合のエラーを生成する。
func NewApplicationFinalizedError(status ApplicationStatus) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationFinalized,
		Message:  fmt.Sprintf("この応募は既に審査済みです: %s", status),
		Category: "validation",
		Action:   "応募者一覧で状態を確認してください。",
	}
}

// NewAlreadyAppliedError は同じ求人への二重応募のエラーを生成する。
func NewAlreadyAppliedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyApplied,
		Message:  "この求人には既に応募しています。",
		Category: "validation",
		Action:   "マイページで応募状況を確認してください。",
	}
}

// NewMissingCVError は履歴書ファイル未添付のエラーを生成する。
func NewMissingCVError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCV,
		Message:  "履歴書ファイルが選択されていません。",
		Category: "validation",
		Action:   "PDFファイルを添付して再度送信してください。",
	}
}

// NewStoryNotFoundError はストーリーが存在しない、または作成者ではない場合のエラーを生成する。
func NewStoryNotFoundError(storyID int64) *APIError {
	return &APIError{
		Code:     ErrCodeStoryNotFound,
		Message:  fmt.Sprintf("ストーリーが見つからないか、編集する権限がありません: %d", storyID),
		Category: "not_found",
		Action:   "ストーリー一覧から選択し直してください。",
	}
}

// NewAgencyNotPendingError は承認待ちではないエージェンシーを審査しようとした場合のエラーを生成する。
func NewAgencyNotPendingError(agencyID int64) *APIError {
	return &APIError{
		Code:     ErrCodeAgencyNotPending,
		Message:  fmt.Sprintf("エージェンシーが見つからないか、承認待ちではありません: %d", agencyID),
		Category: "not_found",
		Action:   "ダッシュボードを再読み込みしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
