package model

import "time"

// ApplicationStatus は応募の審査状態を表す。
type ApplicationStatus string

const (
	// ApplicationPending は審査待ち。
	ApplicationPending ApplicationStatus = "Pending"
	// ApplicationApproved は採用。終端状態。
	ApplicationApproved ApplicationStatus = "Approved"
	// ApplicationRejected は不採用。終端状態。
	ApplicationRejected ApplicationStatus = "Rejected"
)

// Application は求人への応募を表す。
// Name/Email/Contactは応募時点のスナップショット。
type Application struct {
	ID        int64
	Name      string
	Email     string
	Contact   string
	CVPath    string
	Status    ApplicationStatus
	AppliedAt time.Time
	UserID    int64
	JobID     int64
}

// ApplicantView はエージェンシー向け応募者一覧の行。
type ApplicantView struct {
	Application
	Username string
}

// Bookmark は求職者の「後で見る」求人を表す。
type Bookmark struct {
	ID           int64
	UserID       int64
	JobID        int64
	BookmarkedAt time.Time
}

// ActivityKind はマイページの行種別。
type ActivityKind string

const (
	ActivityApplication ActivityKind = "application"
	ActivityBookmark    ActivityKind = "bookmark"
)

// MyActivity は求職者のマイページに並ぶ応募・ブックマークの行。
type MyActivity struct {
	Kind      ActivityKind
	ID        int64
	JobID     int64
	JobTitle  string
	Agency    string
	Status    string
	Timestamp time.Time
}
