package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jjenkins/okbills/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenStatesClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewOpenStatesClient(ClientOptions{
		BaseURL:            srv.URL,
		APIKey:             "test-key",
		Jurisdiction:       "ok",
		Session:            "2025",
		Timeout:            2 * time.Second,
		BillsPerPage:       20,
		LegislatorsPerPage: 50,
	})
	return client, srv
}

func TestFetchLegislators(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		q := r.URL.Query()
		assert.Equal(t, "ok", q.Get("jurisdiction"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "50", q.Get("per_page"))
		assert.Equal(t, []string{"offices"}, q["include"])

		w.Write([]byte(`{
			"results": [{
				"id": "ocd-person/abc",
				"name": "Jane Smith",
				"party": "Republican",
				"image": "https://example.org/jane.jpg",
				"email": "jane@example.org",
				"current_role": {"title": "Senator", "org_classification": "upper", "district": "12"},
				"offices": [{"name": "Capitol", "voice": ""}, {"name": "District", "voice": "405-555-0100"}]
			}],
			"pagination": {"page": 2, "max_page": 3, "per_page": 50, "total_items": 149}
		}`))
	})

	page, err := client.FetchLegislators(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, page.Legislators, 1)

	l := page.Legislators[0]
	assert.Equal(t, "ocd-person/abc", l.OpenStatesID)
	assert.Equal(t, "upper", l.Chamber)
	assert.Equal(t, "12", l.District)
	assert.Equal(t, "405-555-0100", l.Phone)
	assert.Equal(t, "jane@example.org", l.Email)

	require.NotNil(t, page.Pagination)
	assert.Equal(t, 3, page.Pagination.MaxPage)
	assert.True(t, page.Pagination.HasNext())
}

func TestFetchBills(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bills", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2025", q.Get("session"))
		assert.Equal(t, "updated_desc", q.Get("sort"))
		assert.Equal(t, "20", q.Get("per_page"))
		assert.ElementsMatch(t, []string{"actions", "sponsorships", "abstracts", "versions"}, q["include"])

		w.Write([]byte(`{
			"results": [{
				"id": "ocd-bill/1",
				"session": "2025",
				"identifier": "HB 1001",
				"title": "An Act relating to schools",
				"classification": ["bill"],
				"subject": ["Education"],
				"from_organization": {"name": "House", "classification": "lower"},
				"first_action_date": "2025-02-03",
				"latest_action_date": "2025-03-10",
				"latest_action_description": "Referred to Appropriations",
				"openstates_url": "https://openstates.org/ok/bills/2025/HB1001/",
				"abstracts": [{"abstract": ""}, {"abstract": "Schools funding."}],
				"actions": [
					{"description": "First Reading", "date": "2025-02-03", "classification": ["introduction"], "order": 1, "organization": {"classification": "lower"}},
					{"description": "Referred to Appropriations", "date": "2025-03-10", "classification": ["referral-committee"]}
				],
				"sponsorships": [{"name": "Jane Smith", "entity_type": "person", "primary": true, "classification": "author"}],
				"versions": [
					{"note": "Introduced", "links": [{"url": "https://example.org/hb1001.pdf", "media_type": "application/pdf"}]},
					{"note": "Duplicate", "links": [{"url": "https://example.org/hb1001.pdf"}, {"url": ""}]}
				]
			}],
			"pagination": {"page": 1, "total_pages": 4}
		}`))
	})

	page, err := client.FetchBills(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Bills, 1)

	b := page.Bills[0]
	assert.Equal(t, "HB 1001", b.Identifier)
	assert.Equal(t, "lower", b.Chamber)
	assert.Equal(t, "Schools funding.", b.Description)
	assert.Equal(t, []string{"https://example.org/hb1001.pdf"}, b.DocumentURLs)

	require.Len(t, b.Actions, 2)
	assert.Equal(t, 1, b.Actions[0].Order)
	assert.Equal(t, "lower", b.Actions[0].Chamber)
	assert.Equal(t, 1, b.Actions[1].Order, "missing order falls back to position")

	require.Len(t, b.Sponsorships, 1)
	assert.True(t, b.Sponsorships[0].Primary)

	require.NotNil(t, page.Pagination)
	assert.Equal(t, 4, page.Pagination.MaxPage, "total_pages is accepted in place of max_page")
}

func TestFetchBills_OmitsEmptySession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["session"]
		assert.False(t, ok)
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewOpenStatesClient(ClientOptions{BaseURL: srv.URL, Jurisdiction: "ok", BillsPerPage: 20})
	page, err := client.FetchBills(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, page.Bills)
	assert.Nil(t, page.Pagination)
	assert.False(t, page.Pagination.HasNext())
}

func TestFetch_NonSuccessStatusIsNotRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail": "rate limit exceeded"}`))
	})

	_, err := client.FetchBills(context.Background(), 1)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "rate limit exceeded")
	assert.NotContains(t, apiErr.URL, "test-key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway</html>`))
	})

	_, err := client.FetchLegislators(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse legislators page 1")
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewOpenStatesClient(ClientOptions{BaseURL: srv.URL, Jurisdiction: "ok", Timeout: 50 * time.Millisecond})
	_, err := client.FetchLegislators(context.Background(), 1)
	require.Error(t, err)
}

func TestFetch_PageDelaySpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	delay := 100 * time.Millisecond
	client := NewOpenStatesClient(ClientOptions{BaseURL: srv.URL, Jurisdiction: "ok", PageDelay: delay})

	start := time.Now()
	for page := 1; page <= 3; page++ {
		_, err := client.FetchBills(context.Background(), page)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 2*delay-10*time.Millisecond)
}

func TestFetch_CancelledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchBills(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseActions(t *testing.T) {
	t.Run("bill object", func(t *testing.T) {
		actions, err := ParseActions([]byte(`{
			"identifier": "SB 5",
			"actions": [
				{"description": "First Reading", "classification": ["introduction"], "order": 1},
				{"description": "Approved by Governor", "classification": ["executive-signature"], "order": 2}
			]
		}`))
		require.NoError(t, err)
		require.Len(t, actions, 2)
		assert.Equal(t, 2, actions[1].Order)
		assert.Equal(t, model.StageSigned, ClassifyStage(actions))
	})

	t.Run("bare array", func(t *testing.T) {
		actions, err := ParseActions([]byte(`[{"description": "Referred to Rules", "classification": ["referral-committee"]}]`))
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, 0, actions[0].Order)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseActions([]byte("  \n"))
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseActions([]byte(`{"actions": "nope"}`))
		assert.Error(t, err)
	})
}
