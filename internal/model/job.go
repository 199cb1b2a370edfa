package model

import "time"

// Job はエージェンシーが掲載した求人を表す。
// deadlineを過ぎた求人は一覧から除外され、クリーンアップジョブで削除される。
type Job struct {
	ID          int64
	Title       string
	Country     string
	Deadline    time.Time // 日付のみ意味を持つ
	Description string
	PostedAt    time.Time
	Views       int
	AgencyID    int64
}

// JobListing は求人一覧・詳細の表示用モデル。
// 掲載エージェンシー名と、閲覧者が求職者の場合の応募/ブックマーク状態を含む。
type JobListing struct {
	Job
	PostedBy   string
	Applied    bool
	Bookmarked bool
}

// AgencyJobSummary はエージェンシーダッシュボードの求人行。
type AgencyJobSummary struct {
	Job
	ApplicationsCount int
}
