package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/use-agent/mapleads/models"
)

func TestSearcher_SearchURL(t *testing.T) {
	cfg := testConfig()
	s := NewSearcher(newFakeSession(), testEnv(), cfg.Scraper, cfg.Selectors, nil)
	job := models.SearchJob{Category: "restaurantes", Location: "Madrid", MaxResults: 5}

	want := "https://www.google.com/maps/search/restaurantes+en+Madrid"
	if got := s.SearchURL(job); got != want {
		t.Errorf("SearchURL() = %q, want %q", got, want)
	}
}

func TestSearcher_StreamsRecords(t *testing.T) {
	cfg := testConfig()
	sess := newFakeSession()
	sess.static[cfg.Selectors.Feed] = []Element{&fakeElement{}}

	good := &fakeElement{text: "Café Luna", panel: cafeLunaPanel("https://www.facebook.com/cafeluna"), session: sess}
	incomplete := &fakeElement{
		text: "Bar Sin Datos",
		panel: &fakePanel{els: map[string][]Element{
			"h1.DUwDvf": label("Bar Sin Datos"),
		}},
		session: sess,
	}
	sess.static[cfg.Selectors.FeedItem] = []Element{good, incomplete}

	job := models.SearchJob{Category: "cafeterías", Location: "Madrid", MaxResults: 2}
	var got []*models.BusinessRecord
	res, err := NewSearcher(sess, testEnv(), cfg.Scraper, cfg.Selectors, nil).
		Search(context.Background(), job, func(r *models.BusinessRecord) { got = append(got, r) })
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if res.Loaded != 2 || res.Extracted != 1 || res.Skipped != 1 {
		t.Errorf("Loaded/Extracted/Skipped = %d/%d/%d, want 2/1/1", res.Loaded, res.Extracted, res.Skipped)
	}
	if res.Exhausted {
		t.Error("Exhausted = true, want false")
	}
	if len(got) != 1 {
		t.Fatalf("sink received %d records, want 1", len(got))
	}
	if got[0].SearchGroup != job.Label() {
		t.Errorf("SearchGroup = %q, want %q", got[0].SearchGroup, job.Label())
	}
	if got[0].Facebook != "https://www.facebook.com/cafeluna" || got[0].Website != "" {
		t.Errorf("Facebook/Website = %q/%q", got[0].Facebook, got[0].Website)
	}
	if len(sess.navigated) != 1 {
		t.Errorf("navigations = %d, want 1", len(sess.navigated))
	}
}

func TestSearcher_MissingFeedIsEmpty(t *testing.T) {
	cfg := testConfig()
	sess := newFakeSession()
	sess.missing[cfg.Selectors.Feed] = true

	job := models.SearchJob{Category: "x", Location: "y", MaxResults: 3}
	res, err := NewSearcher(sess, testEnv(), cfg.Scraper, cfg.Selectors, nil).
		Search(context.Background(), job, func(*models.BusinessRecord) { t.Error("unexpected record") })
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if res.Loaded != 0 || res.Extracted != 0 {
		t.Errorf("Loaded/Extracted = %d/%d, want 0/0", res.Loaded, res.Extracted)
	}
}

func TestSearcher_SessionLostAborts(t *testing.T) {
	cfg := testConfig()
	sess := newFakeSession()
	sess.static[cfg.Selectors.Feed] = []Element{&fakeElement{}}
	first := &fakeElement{text: "Café Luna", panel: cafeLunaPanel(""), session: sess}
	dead := &fakeElement{text: "Otro", clickErr: ErrSessionLost, session: sess}
	never := &fakeElement{text: "Nunca", panel: cafeLunaPanel(""), session: sess}
	sess.static[cfg.Selectors.FeedItem] = []Element{first, dead, never}

	job := models.SearchJob{Category: "c", Location: "l", MaxResults: 3}
	n := 0
	res, err := NewSearcher(sess, testEnv(), cfg.Scraper, cfg.Selectors, nil).
		Search(context.Background(), job, func(*models.BusinessRecord) { n++ })
	if !errors.Is(err, ErrSessionLost) {
		t.Fatalf("Search() error = %v, want ErrSessionLost", err)
	}
	if n != 1 || res.Extracted != 1 {
		t.Errorf("records = %d, Extracted = %d, want 1 and 1", n, res.Extracted)
	}
	if never.clicks != 0 {
		t.Error("item after a lost session was clicked")
	}
}
