// Package repository はデータ永続化のインターフェースとPostgreSQL実装を定義する。
// 複数テーブルにまたがる更新はリポジトリのメソッド内で1トランザクションとして実行する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/jobboard/internal/model"
)

// AccountRepository はusers / agencies 両テーブルにまたがるアカウント操作のインターフェース。
type AccountRepository interface {
	// CreateUser は一般ユーザーを作成する。
	// ユーザー名またはメールアドレスがどちらかのテーブルに存在する場合はErrDuplicateを返す。
	CreateUser(ctx context.Context, user *model.User) error

	// CreateAgency はエージェンシーを承認待ちで作成し、同じトランザクションで管理者に通知する。
	// 重複時はErrDuplicateを返す。
	CreateAgency(ctx context.Context, agency *model.Agency, adminMessage string) error
}

// UserRepository は一般ユーザーの永続化インターフェース。
type UserRepository interface {
	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// UpdateProfile は氏名・電話番号・メールアドレスを更新する。
	// メールアドレスが他のアカウントと衝突する場合はErrDuplicateを返す。
	UpdateProfile(ctx context.Context, user *model.User) error

	// ListJobSeekers は管理者以外のユーザーを作成日時の古い順に返す。
	ListJobSeekers(ctx context.Context) ([]*model.User, error)
}

// AgencyRepository はエージェンシーの永続化インターフェース。
type AgencyRepository interface {
	// FindByUsername はユーザー名でエージェンシーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Agency, error)

	// FindByID は指定IDのエージェンシーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Agency, error)

	// ListByStatus は指定状態のエージェンシーを作成日時の古い順に返す。
	ListByStatus(ctx context.Context, status model.AccountStatus) ([]*model.Agency, error)

	// Verify は承認待ちのエージェンシーを承認済みにし、同じトランザクションで本人に通知する。
	// 承認待ちの行が存在しない場合はfalseを返す。
	Verify(ctx context.Context, id int64, message string) (bool, error)

	// DeletePending は承認待ちのエージェンシーを削除する。
	// 承認待ちの行が存在しない場合はfalseを返す。
	DeletePending(ctx context.Context, id int64) (bool, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// JobRepository は求人の永続化インターフェース。
// 締切日を過ぎた求人は、掃除ジョブで削除される前でも全ての読み取りから除外する。
type JobRepository interface {
	// ListLive は公開中の求人を掲載日時の新しい順に返す。
	// viewerUserIDが指定された場合は応募済み・ブックマーク済みフラグを付与する。
	ListLive(ctx context.Context, viewerUserID *int64) ([]model.JobListing, error)

	// FindByID は公開中の求人を掲載元の会社名付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.JobListing, error)

	// IncrementViews は閲覧数を1増やす。求人が存在しない場合はfalseを返す。
	IncrementViews(ctx context.Context, id int64) (bool, error)

	// CreateWithFanout は求人を作成し、同じトランザクションで全ての求職者に通知する。
	// 通知した件数を返す。
	CreateWithFanout(ctx context.Context, job *model.Job, message string) (int, error)

	// FindOwned は指定エージェンシーが所有する公開中の求人を取得する。見つからない場合はnilを返す。
	FindOwned(ctx context.Context, id, agencyID int64) (*model.Job, error)

	// Update は所有エージェンシーの求人を更新する。対象がない場合はfalseを返す。
	Update(ctx context.Context, job *model.Job) (bool, error)

	// Delete は所有エージェンシーの求人を削除する。対象がない場合はfalseを返す。
	Delete(ctx context.Context, id, agencyID int64) (bool, error)

	// ListByAgency はエージェンシーの公開中求人を応募数付きで返す。
	ListByAgency(ctx context.Context, agencyID int64) ([]model.AgencyJobSummary, error)

	// DeleteExpired は締切日を過ぎた求人を削除し、削除した求人を返す。
	DeleteExpired(ctx context.Context) ([]model.Job, error)
}

// ApplicationRepository は応募の永続化インターフェース。
type ApplicationRepository interface {
	// Exists は(user, job)の応募が存在するかを返す。
	Exists(ctx context.Context, userID, jobID int64) (bool, error)

	// Submit は応募を作成し、同じトランザクションで(user, job)のブックマークを削除して
	// 求人の所有エージェンシーに通知する。既に応募済みの場合はfalseを返す。
	Submit(ctx context.Context, app *model.Application, agencyMessage string) (bool, error)

	// FindForAgency は指定エージェンシーの求人に対する応募を取得する。見つからない場合はnilを返す。
	FindForAgency(ctx context.Context, id, agencyID int64) (*model.Application, error)

	// Decide は審査待ちの応募の状態を変更し、同じトランザクションで応募者に通知する。
	// 審査待ちの応募が存在しない場合はfalseを返す。
	Decide(ctx context.Context, id, agencyID int64, status model.ApplicationStatus, message string) (bool, error)

	// ListForJob は求人への応募を応募日時の新しい順に返す。
	ListForJob(ctx context.Context, jobID int64) ([]model.ApplicantView, error)

	// ListActivity はユーザーの応募とブックマークを日時の新しい順にまとめて返す。
	ListActivity(ctx context.Context, userID int64) ([]model.MyActivity, error)

	// CanReadCV は履歴書ファイルが、応募先求人のエージェンシーまたは応募者本人であるreaderの
	// 応募に紐づくかを返す。
	CanReadCV(ctx context.Context, filename string, reader model.OwnerRef) (bool, error)
}

// BookmarkRepository はブックマークの永続化インターフェース。
type BookmarkRepository interface {
	// Add はブックマークを作成する。既に存在する場合はfalseを返す。
	Add(ctx context.Context, userID, jobID int64) (bool, error)
	// Remove はブックマークを削除する。存在しなくてもエラーにしない。
	Remove(ctx context.Context, userID, jobID int64) error
}

// NotificationRepository は通知の永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error
	// ListByOwner は所有者宛ての通知を作成日時の新しい順に返す。
	ListByOwner(ctx context.Context, owner model.OwnerRef) ([]*model.Notification, error)
}

// StoryRepository はサクセスストーリーの永続化インターフェース。
type StoryRepository interface {
	// List は全てのストーリーを作成者名付きで新しい順に返す。
	List(ctx context.Context) ([]model.StoryView, error)
	// FindOwned は作成者が一致するストーリーを取得する。見つからない場合はnilを返す。
	FindOwned(ctx context.Context, id int64, author model.OwnerRef) (*model.SuccessStory, error)
	// Create はストーリーを作成する。
	Create(ctx context.Context, story *model.SuccessStory) error
	// Update は作成者が一致するストーリーの本文と評価を更新する。対象がない場合はfalseを返す。
	Update(ctx context.Context, story *model.SuccessStory) (bool, error)
	// Delete は作成者が一致するストーリーを削除する。対象がない場合はfalseを返す。
	Delete(ctx context.Context, id int64, author model.OwnerRef) (bool, error)
}

// StatsRepository は管理者ダッシュボード用の集計インターフェース。
type StatsRepository interface {
	// AdminStats は承認待ち・承認済みエージェンシー数、求職者数、公開中求人数を返す。
	AdminStats(ctx context.Context) (model.AdminStats, error)
}

// execer は *sql.DB と *sql.Tx の共通部分。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
