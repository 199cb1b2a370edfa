package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jobboard/internal/model"
)

const applicationColumns = `ap.id, ap.name, ap.email, ap.contact, ap.cv_path, ap.status, ap.applied_at, ap.user_id, ap.job_id`

// PostgresApplicationRepo はPostgreSQLを使用した応募リポジトリ。
type PostgresApplicationRepo struct {
	db *sql.DB
}

// NewPostgresApplicationRepo はPostgresApplicationRepoを生成する。
func NewPostgresApplicationRepo(db *sql.DB) *PostgresApplicationRepo {
	return &PostgresApplicationRepo{db: db}
}

func applicationDest(a *model.Application) []interface{} {
	return []interface{}{&a.ID, &a.Name, &a.Email, &a.Contact, &a.CVPath, &a.Status, &a.AppliedAt, &a.UserID, &a.JobID}
}

// Exists は(user, job)の応募が存在するかを返す。
func (r *PostgresApplicationRepo) Exists(ctx context.Context, userID, jobID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE user_id = $1 AND job_id = $2)`,
		userID, jobID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check application: %w", err)
	}
	return exists, nil
}

// Submit は応募を作成し、ブックマークを削除してエージェンシーに通知する。
// 求人が存在しないか締切日を過ぎている場合はErrJobNotLiveを返す。
// UNIQUE(user_id, job_id) とON CONFLICTにより、同時の二重応募でも1行しか作成されない。
func (r *PostgresApplicationRepo) Submit(ctx context.Context, app *model.Application, agencyMessage string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 掃除ジョブによる削除と競合しないよう、求人行を共有ロックする
	var agencyID int64
	err = tx.QueryRowContext(ctx,
		`SELECT j.agency_id FROM jobs j WHERE j.id = $1 AND `+liveJob+` FOR SHARE`,
		app.JobID,
	).Scan(&agencyID)
	if err == sql.ErrNoRows {
		return false, ErrJobNotLive
	}
	if err != nil {
		return false, fmt.Errorf("failed to find job owner: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO applications (name, email, contact, cv_path, user_id, job_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, job_id) DO NOTHING
		 RETURNING id, status, applied_at`,
		app.Name, app.Email, app.Contact, app.CVPath, app.UserID, app.JobID,
	).Scan(&app.ID, &app.Status, &app.AppliedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert application: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM job_bookmarks WHERE user_id = $1 AND job_id = $2`,
		app.UserID, app.JobID,
	); err != nil {
		return false, fmt.Errorf("failed to delete bookmark: %w", err)
	}

	if err := insertNotification(ctx, tx, model.AgencyOwner(agencyID), agencyMessage, model.NotificationInfo); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// FindForAgency は指定エージェンシーの公開中の求人に対する応募を取得する。
func (r *PostgresApplicationRepo) FindForAgency(ctx context.Context, id, agencyID int64) (*model.Application, error) {
	app := &model.Application{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+`
		 FROM applications ap
		 JOIN jobs j ON j.id = ap.job_id
		 WHERE ap.id = $1 AND j.agency_id = $2 AND `+liveJob,
		id, agencyID,
	).Scan(applicationDest(app)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return app, nil
}

// Decide は審査待ちの応募の状態を変更し、応募者に通知する。
// 状態の条件付き更新により、審査済みの応募が二重に遷移することはない。
func (r *PostgresApplicationRepo) Decide(ctx context.Context, id, agencyID int64, status model.ApplicationStatus, message string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	err = tx.QueryRowContext(ctx,
		`UPDATE applications ap SET status = $1
		 FROM jobs j
		 WHERE ap.id = $2 AND ap.job_id = j.id AND j.agency_id = $3 AND ap.status = 'Pending'
		   AND `+liveJob+`
		 RETURNING ap.user_id`,
		status, id, agencyID,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update application status: %w", err)
	}

	category := model.NotificationInfo
	if status == model.ApplicationApproved {
		category = model.NotificationSuccess
	}
	if err := insertNotification(ctx, tx, model.UserOwner(userID), message, category); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// ListForJob は求人への応募を応募日時の新しい順に返す。
func (r *PostgresApplicationRepo) ListForJob(ctx context.Context, jobID int64) ([]model.ApplicantView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+`, u.username
		 FROM applications ap
		 JOIN users u ON u.id = ap.user_id
		 WHERE ap.job_id = $1
		 ORDER BY ap.applied_at DESC, ap.id DESC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var views []model.ApplicantView
	for rows.Next() {
		var v model.ApplicantView
		dest := append(applicationDest(&v.Application), &v.Username)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return views, nil
}

// ListActivity はユーザーの応募とブックマークを日時の新しい順にまとめて返す。
// ブックマークの状態列は空文字列になる。
func (r *PostgresApplicationRepo) ListActivity(ctx context.Context, userID int64) ([]model.MyActivity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT 'application' AS kind, ap.id, j.id, j.title, a.company_name, ap.status, ap.applied_at AS ts
		 FROM applications ap
		 JOIN jobs j ON j.id = ap.job_id
		 JOIN agencies a ON a.id = j.agency_id
		 WHERE ap.user_id = $1
		 UNION ALL
		 SELECT 'bookmark', b.id, j.id, j.title, a.company_name, '', b.bookmarked_at
		 FROM job_bookmarks b
		 JOIN jobs j ON j.id = b.job_id
		 JOIN agencies a ON a.id = j.agency_id
		 WHERE b.user_id = $1
		 ORDER BY ts DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var activity []model.MyActivity
	for rows.Next() {
		var a model.MyActivity
		if err := rows.Scan(&a.Kind, &a.ID, &a.JobID, &a.JobTitle, &a.Agency, &a.Status, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activity = append(activity, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return activity, nil
}

// CanReadCV は履歴書ファイルをreaderが閲覧できるかを返す。
// 閲覧できるのは応募先求人のエージェンシーと応募者本人のみ。
func (r *PostgresApplicationRepo) CanReadCV(ctx context.Context, filename string, reader model.OwnerRef) (bool, error) {
	userID, agencyID := reader.Columns()
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM applications ap
		     JOIN jobs j ON j.id = ap.job_id
		     WHERE ap.cv_path = $1 AND (ap.user_id = $2 OR j.agency_id = $3)
		 )`,
		filename, userID, agencyID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check cv access: %w", err)
	}
	return ok, nil
}

// compile-time interface check
var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)
