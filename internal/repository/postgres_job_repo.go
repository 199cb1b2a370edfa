package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/jobboard/internal/model"
)

// liveJob は締切日を過ぎていない求人の条件。
// 掃除ジョブの実行間隔に関係なく、期限切れの求人を読み取りから除外する。
const liveJob = `j.deadline >= CURRENT_DATE`

const jobColumns = `j.id, j.title, j.country, j.deadline, j.description, j.posted_at, j.views, j.agency_id`

// PostgresJobRepo はPostgreSQLを使用した求人リポジトリ。
type PostgresJobRepo struct {
	db *sql.DB
}

// NewPostgresJobRepo はPostgresJobRepoを生成する。
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

// dateParam はDATE列に渡す日付文字列を返す。
// time.Timeをそのまま渡すとセッションのタイムゾーンで日付がずれるため、暦日のみを送る。
func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}

func jobDest(j *model.Job) []interface{} {
	return []interface{}{&j.ID, &j.Title, &j.Country, &j.Deadline, &j.Description, &j.PostedAt, &j.Views, &j.AgencyID}
}

// ListLive は公開中の求人を掲載日時の新しい順に返す。
// viewerUserIDがnilの場合、応募済み・ブックマーク済みフラグは常にfalseになる。
func (r *PostgresJobRepo) ListLive(ctx context.Context, viewerUserID *int64) ([]model.JobListing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+`, a.company_name,
		        (ap.id IS NOT NULL) AS applied,
		        (b.id IS NOT NULL) AS bookmarked
		 FROM jobs j
		 JOIN agencies a ON a.id = j.agency_id
		 LEFT JOIN applications ap ON ap.job_id = j.id AND ap.user_id = $1
		 LEFT JOIN job_bookmarks b ON b.job_id = j.id AND b.user_id = $1
		 WHERE `+liveJob+`
		 ORDER BY j.posted_at DESC, j.id DESC`,
		viewerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var listings []model.JobListing
	for rows.Next() {
		var l model.JobListing
		dest := append(jobDest(&l.Job), &l.PostedBy, &l.Applied, &l.Bookmarked)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return listings, nil
}

// FindByID は公開中の求人を掲載元の会社名付きで取得する。見つからない場合はnilを返す。
func (r *PostgresJobRepo) FindByID(ctx context.Context, id int64) (*model.JobListing, error) {
	l := &model.JobListing{}
	dest := append(jobDest(&l.Job), &l.PostedBy)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+`, a.company_name
		 FROM jobs j
		 JOIN agencies a ON a.id = j.agency_id
		 WHERE j.id = $1 AND `+liveJob,
		id,
	).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return l, nil
}

// IncrementViews は閲覧数を1増やす。
// 同時アクセスでも取りこぼさないよう、読み出しと加算を1文で行う。
func (r *PostgresJobRepo) IncrementViews(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE jobs j SET views = j.views + 1 WHERE j.id = $1 AND `+liveJob,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment views: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CreateWithFanout は求人を作成し、全ての求職者に通知する。
func (r *PostgresJobRepo) CreateWithFanout(ctx context.Context, job *model.Job, message string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO jobs (title, country, deadline, description, agency_id)
		 VALUES ($1, $2, $3::date, $4, $5)
		 RETURNING id, posted_at, views`,
		job.Title, job.Country, dateParam(job.Deadline), job.Description, job.AgencyID,
	).Scan(&job.ID, &job.PostedAt, &job.Views)
	if err != nil {
		return 0, fmt.Errorf("failed to insert job: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (message, category, user_id)
		 SELECT $1, 'info', id FROM users WHERE NOT is_admin`,
		message,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to fan out job notifications: %w", err)
	}
	notified, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(notified), nil
}

// FindOwned は指定エージェンシーが所有する公開中の求人を取得する。
func (r *PostgresJobRepo) FindOwned(ctx context.Context, id, agencyID int64) (*model.Job, error) {
	job := &model.Job{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs j
		 WHERE j.id = $1 AND j.agency_id = $2 AND `+liveJob,
		id, agencyID,
	).Scan(jobDest(job)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find owned job: %w", err)
	}
	return job, nil
}

// Update は所有エージェンシーの公開中の求人を更新する。
// 締切日を過ぎた求人は掃除前でも更新できない。
func (r *PostgresJobRepo) Update(ctx context.Context, job *model.Job) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE jobs j SET title = $1, country = $2, deadline = $3::date, description = $4
		 WHERE j.id = $5 AND j.agency_id = $6 AND `+liveJob,
		job.Title, job.Country, dateParam(job.Deadline), job.Description, job.ID, job.AgencyID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update job: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は所有エージェンシーの求人を削除する。
// 応募とブックマークはCASCADE削除される。
func (r *PostgresJobRepo) Delete(ctx context.Context, id, agencyID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = $1 AND agency_id = $2`,
		id, agencyID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListByAgency はエージェンシーの公開中求人を応募数付きで返す。
func (r *PostgresJobRepo) ListByAgency(ctx context.Context, agencyID int64) ([]model.AgencyJobSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+`, count(ap.id)
		 FROM jobs j
		 LEFT JOIN applications ap ON ap.job_id = j.id
		 WHERE j.agency_id = $1 AND `+liveJob+`
		 GROUP BY j.id
		 ORDER BY j.posted_at DESC, j.id DESC`,
		agencyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list agency jobs: %w", err)
	}
	defer rows.Close()

	var summaries []model.AgencyJobSummary
	for rows.Next() {
		var s model.AgencyJobSummary
		dest := append(jobDest(&s.Job), &s.ApplicationsCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan agency job: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agency jobs: %w", err)
	}
	return summaries, nil
}

// DeleteExpired は締切日を過ぎた求人を削除し、削除した求人を返す。
// 応募とブックマークはCASCADE削除される。
func (r *PostgresJobRepo) DeleteExpired(ctx context.Context) ([]model.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM jobs j WHERE j.deadline < CURRENT_DATE
		 RETURNING `+jobColumns,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(jobDest(&job)...); err != nil {
			return nil, fmt.Errorf("failed to scan expired job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expired jobs: %w", err)
	}
	return jobs, nil
}

// compile-time interface check
var _ JobRepository = (*PostgresJobRepo)(nil)
