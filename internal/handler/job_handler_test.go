package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/jobboard/internal/feed"
	"github.com/hitoshi/jobboard/internal/job"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/mmcdole/gofeed"
)

func sampleListings() []model.JobListing {
	return []model.JobListing{
		{
			Job: model.Job{
				ID: 3, Title: "Welder", Country: "Japan",
				Deadline:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
				Description: "<p>Welding work</p>",
				PostedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				Views:       12,
			},
			PostedBy:   "Acme",
			Bookmarked: true,
		},
		{
			Job: model.Job{
				ID: 2, Title: "Cook", Country: "Qatar",
				Deadline: time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC),
				PostedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
			},
			PostedBy: "Globex",
			Applied:  true,
		},
	}
}

func TestJobList_Anonymous(t *testing.T) {
	deps := testDeps(t)
	deps.JobService = &mockJobService{
		listFn: func(_ context.Context, p *model.Principal) ([]model.JobListing, error) {
			if p != nil {
				t.Errorf("未ログインではprincipalはnil: %+v", p)
			}
			return sampleListings(), nil
		},
	}

	w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	assertBodyContains(t, w, "Welder")
	assertBodyContains(t, w, "Acme")
	assertBodyContains(t, w, "2026-12-31")
	for _, action := range []string{"応募する", "ブックマーク解除"} {
		if strings.Contains(w.Body.String(), action) {
			t.Errorf("未ログインでは%qを表示しないこと", action)
		}
	}
}

func TestJobList_JobSeekerSeesFlags(t *testing.T) {
	deps := testDeps(t)
	deps.JobService = &mockJobService{
		listFn: func(_ context.Context, p *model.Principal) ([]model.JobListing, error) {
			if p == nil || p.ID != seeker.ID {
				t.Errorf("principal = %+v", p)
			}
			return sampleListings(), nil
		},
	}

	w := serve(t, deps, withSession(httptest.NewRequest(http.MethodGet, "/jobs", nil), "sid-seeker"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	assertBodyContains(t, w, "応募済み")
	assertBodyContains(t, w, "ブックマーク解除")
	assertBodyContains(t, w, `/jobs/3/apply`)
}

func TestJobList_ServiceError(t *testing.T) {
	deps := testDeps(t)
	deps.JobService = &mockJobService{
		listFn: func(context.Context, *model.Principal) ([]model.JobListing, error) {
			return nil, errors.New("db down")
		},
	}

	w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestIndex_ShowsLatestJobs(t *testing.T) {
	deps := testDeps(t)
	deps.JobService = &mockJobService{
		listFn: func(context.Context, *model.Principal) ([]model.JobListing, error) {
			return sampleListings(), nil
		},
	}

	w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	assertBodyContains(t, w, "新着求人")
	assertBodyContains(t, w, "Cook")
}

func TestJobFeed_IsParseableRSS(t *testing.T) {
	deps := testDeps(t)
	deps.JobService = &mockJobService{
		listFn: func(_ context.Context, p *model.Principal) ([]model.JobListing, error) {
			if p != nil {
				t.Errorf("フィードは閲覧者に依存しないこと: %+v", p)
			}
			return sampleListings(), nil
		},
	}

	w := serve(t, deps, withSession(httptest.NewRequest(http.MethodGet, "/jobs/feed.xml", nil), "sid-seeker"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != feed.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	parsed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("failed to parse feed: %v", err)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(parsed.Items))
	}
	if parsed.Items[0].Link != "https://jobs.example.com/jobs/3" {
		t.Errorf("link = %q", parsed.Items[0].Link)
	}
}

func TestJobDetail(t *testing.T) {
	t.Run("表示", func(t *testing.T) {
		deps := testDeps(t)
		deps.JobService = &mockJobService{
			detailFn: func(_ context.Context, id int64) (*model.JobListing, error) {
				if id != 3 {
					t.Errorf("id = %d", id)
				}
				l := sampleListings()[0]
				return &l, nil
			},
		}

		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/jobs/3", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		assertBodyContains(t, w, "<p>Welding work</p>")
		assertBodyContains(t, w, "12")
	})

	t.Run("存在しない求人は404", func(t *testing.T) {
		w := serve(t, testDeps(t), httptest.NewRequest(http.MethodGet, "/jobs/999", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
		assertBodyContains(t, w, "求人が見つからないか")
	})

	t.Run("数値でないIDは404", func(t *testing.T) {
		deps := testDeps(t)
		deps.JobService = &mockJobService{
			detailFn: func(context.Context, int64) (*model.JobListing, error) {
				t.Error("Detail should not be called")
				return nil, nil
			},
		}

		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/jobs/abc", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestAgencyDashboard(t *testing.T) {
	deps := testDeps(t)
	deps.JobService = &mockJobService{
		dashboardFn: func(_ context.Context, p *model.Principal) ([]model.AgencyJobSummary, error) {
			return []model.AgencyJobSummary{
				{Job: model.Job{ID: 3, Title: "Welder", Country: "Japan"}, ApplicationsCount: 4},
			}, model.RequireAgency(p)
		},
	}

	w := serve(t, deps, withSession(httptest.NewRequest(http.MethodGet, "/agency/dashboard", nil), "sid-agency"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	assertBodyContains(t, w, "Welder")
	assertBodyContains(t, w, "/agency/jobs/3/applications")
}

func TestCreateJob(t *testing.T) {
	t.Run("掲載後ダッシュボードへ", func(t *testing.T) {
		deps := testDeps(t)
		var got job.Input
		deps.JobService = &mockJobService{
			createFn: func(_ context.Context, p *model.Principal, in job.Input) (*model.Job, error) {
				if p.ID != agency.ID {
					t.Errorf("principal = %+v", p)
				}
				got = in
				return &model.Job{ID: 9}, nil
			},
		}

		w := serve(t, deps, withSession(postForm("/agency/jobs/new", url.Values{
			"title":       {"Welder"},
			"country":     {"Japan"},
			"deadline":    {"2026-12-31"},
			"description": {"<p>Welding</p>"},
		}), "sid-agency"))

		assertRedirect(t, w, "/agency/dashboard?notice=job_posted")
		if got.Title != "Welder" || got.Deadline != "2026-12-31" || got.Description != "<p>Welding</p>" {
			t.Errorf("Input = %+v", got)
		}
	})

	t.Run("検証エラーは入力を残して再表示", func(t *testing.T) {
		deps := testDeps(t)
		deps.JobService = &mockJobService{
			createFn: func(context.Context, *model.Principal, job.Input) (*model.Job, error) {
				return nil, model.NewValidationError("deadline", "本日以降の日付を指定してください")
			},
		}

		w := serve(t, deps, withSession(postForm("/agency/jobs/new", url.Values{
			"title":    {"Welder"},
			"deadline": {"2020-01-01"},
		}), "sid-agency"))

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		assertBodyContains(t, w, "本日以降の日付を指定してください")
		assertBodyContains(t, w, `value="Welder"`)
	})
}

func TestEditJob(t *testing.T) {
	t.Run("所有する求人の編集フォーム", func(t *testing.T) {
		deps := testDeps(t)
		deps.JobService = &mockJobService{
			findOwnedFn: func(_ context.Context, p *model.Principal, id int64) (*model.Job, error) {
				return &model.Job{ID: id, Title: "Welder", Country: "Japan", Deadline: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)}, nil
			},
		}

		w := serve(t, deps, withSession(httptest.NewRequest(http.MethodGet, "/agency/jobs/3/edit", nil), "sid-agency"))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		assertBodyContains(t, w, `action="/agency/jobs/3/edit"`)
		assertBodyContains(t, w, `value="2026-12-31"`)
	})

	t.Run("他社の求人は404", func(t *testing.T) {
		w := serve(t, testDeps(t), withSession(httptest.NewRequest(http.MethodGet, "/agency/jobs/3/edit", nil), "sid-agency"))

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("更新", func(t *testing.T) {
		deps := testDeps(t)
		var gotID int64
		deps.JobService = &mockJobService{
			updateFn: func(_ context.Context, _ *model.Principal, id int64, in job.Input) (*model.Job, error) {
				gotID = id
				return &model.Job{ID: id}, nil
			},
		}

		w := serve(t, deps, withSession(postForm("/agency/jobs/3/edit", url.Values{"title": {"Senior Welder"}}), "sid-agency"))

		assertRedirect(t, w, "/agency/dashboard?notice=job_updated")
		if gotID != 3 {
			t.Errorf("id = %d", gotID)
		}
	})

	t.Run("締切済みの求人の更新は404", func(t *testing.T) {
		deps := testDeps(t)
		deps.JobService = &mockJobService{
			updateFn: func(_ context.Context, _ *model.Principal, id int64, _ job.Input) (*model.Job, error) {
				return nil, model.NewJobNotFoundError(id)
			},
		}

		w := serve(t, deps, withSession(postForm("/agency/jobs/3/edit", url.Values{
			"title":    {"Plumber"},
			"deadline": {"2099-01-01"},
		}), "sid-agency"))

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestDeleteJob(t *testing.T) {
	deps := testDeps(t)
	var gotID int64
	deps.JobService = &mockJobService{
		deleteFn: func(_ context.Context, _ *model.Principal, id int64) error {
			gotID = id
			return nil
		},
	}

	w := serve(t, deps, withSession(postForm("/agency/jobs/7/delete", nil), "sid-agency"))

	assertRedirect(t, w, "/agency/dashboard?notice=job_deleted")
	if gotID != 7 {
		t.Errorf("id = %d", gotID)
	}
}
