package model

import "time"

// 通知カテゴリ
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
)

// Notification は主体ごとの追記専用の通知を表す。
// IsReadは保存されるが、既読化の操作は提供しない。
type Notification struct {
	ID        int64
	Owner     OwnerRef
	Message   string
	Category  string
	IsRead    bool
	CreatedAt time.Time
}

// SuccessStory はユーザーまたはエージェンシーが投稿する体験談。
type SuccessStory struct {
	ID        int64
	Author    OwnerRef
	Content   string
	Rating    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoryView は一覧表示用のサクセスストーリー。
// AuthorNameはユーザー名またはエージェンシーの会社名。
type StoryView struct {
	SuccessStory
	AuthorName string
}

// AdminStats は管理者ダッシュボードの集計値。
type AdminStats struct {
	PendingAgencies  int
	VerifiedAgencies int
	Users            int
	Jobs             int
}
