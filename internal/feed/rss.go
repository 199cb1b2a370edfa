// Package feed は公開中の求人をRSS 2.0で配信する。
package feed

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/hitoshi/jobboard/internal/model"
)

// ContentType はRSSレスポンスのContent-Type。
const ContentType = "application/rss+xml; charset=utf-8"

// Write は求人一覧をRSS 2.0として書き出す。
// 各itemのlinkは baseURL + /jobs/{id}。descriptionは求人の説明文（サニタイズ済みHTML）。
func Write(w io.Writer, baseURL string, jobs []model.JobListing) error {
	base := strings.TrimRight(baseURL, "/")

	f := &feeds.Feed{
		Title:       "Job Board - Latest jobs",
		Link:        &feeds.Link{Href: base + "/jobs"},
		Description: "Jobs posted by verified agencies",
		Items:       make([]*feeds.Item, 0, len(jobs)),
	}
	var latest time.Time
	for _, j := range jobs {
		link := fmt.Sprintf("%s/jobs/%d", base, j.ID)
		f.Items = append(f.Items, &feeds.Item{
			Title:       fmt.Sprintf("%s (%s)", j.Title, j.Country),
			Link:        &feeds.Link{Href: link},
			Description: fmt.Sprintf("%s<p>Deadline: %s</p>", j.Description, j.Deadline.Format("2006-01-02")),
			Author:      &feeds.Author{Name: j.PostedBy},
			Id:          link,
			Created:     j.PostedAt.UTC(),
		})
		if j.PostedAt.After(latest) {
			latest = j.PostedAt.UTC()
		}
	}
	// 求人がない場合はゼロ値のままとし、lastBuildDateを出力しない
	f.Updated = latest

	if err := f.WriteRss(w); err != nil {
		return fmt.Errorf("failed to encode rss: %w", err)
	}
	return nil
}
