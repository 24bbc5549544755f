package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/feedcached/feedcached/internal/eventbus"
	"github.com/feedcached/feedcached/internal/feeds"
	"github.com/feedcached/feedcached/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store, *eventbus.Bus) {
	t.Helper()
	st := store.New()
	bus := eventbus.New()
	t.Cleanup(func() { bus.Close(context.Background()) })

	srv := New("127.0.0.1", 0, st, bus)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts, st, bus
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("GET %s: bad JSON: %v", url, err)
	}
	return body
}

func writeArticles(st *store.Store, collection string, titles ...string) {
	records := make([]store.Record, len(titles))
	for i, title := range titles {
		records[i] = feeds.NewsArticle{Title: title, URL: "/" + title}
	}
	st.Write("NEWS", collection, fmt.Sprintf("%s's Latest News.", collection), records)
}

func TestStatusEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)
	body := getJSON(t, ts.URL+"/api/status", http.StatusOK)
	if body["message"] != "ok" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestCollectionsEndpoint(t *testing.T) {
	ts, st, _ := newTestServer(t)
	writeArticles(st, "BBC", "T1")

	body := getJSON(t, ts.URL+"/api/news", http.StatusOK)
	response, ok := body["response"].([]any)
	if !ok || len(response) != 1 {
		t.Fatalf("response = %v", body["response"])
	}
	summary := response[0].(map[string]any)
	if summary["name"] != "BBC" || summary["description"] != "BBC's Latest News." {
		t.Errorf("summary = %v", summary)
	}

	lnk := body["link"].(map[string]any)
	if lnk["action"] != "GET" || lnk["href"] != "/api/news" {
		t.Errorf("link = %v", lnk)
	}
	if _, ok := body["timestamp"]; !ok {
		t.Error("envelope missing timestamp")
	}
}

func TestSearchEndpoint(t *testing.T) {
	ts, st, _ := newTestServer(t)
	writeArticles(st, "BBC", "T1")

	body := getJSON(t, ts.URL+"/api/news/bbc", http.StatusOK)
	response := body["response"].(map[string]any)
	items := response["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %v", items)
	}

	// Items are flattened: payload fields next to assigned metadata.
	item := items[0].(map[string]any)
	if item["title"] != "T1" || item["name"] != "BBC" {
		t.Errorf("item = %v", item)
	}
	if item["id"] == "" || item["id"] == nil {
		t.Error("item missing fingerprint id")
	}
}

func TestSearchNotFoundStatusAndMessage(t *testing.T) {
	ts, st, _ := newTestServer(t)

	body := getJSON(t, ts.URL+"/api/news/bbc", http.StatusNotFound)
	if body["message"] != "Could not find namespace: NEWS" {
		t.Errorf("message = %v", body["message"])
	}

	writeArticles(st, "SKY", "T1")
	body = getJSON(t, ts.URL+"/api/news/bbc", http.StatusNotFound)
	if body["message"] != "Could not find collection: BBC in NEWS" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestSearchPagination(t *testing.T) {
	ts, st, _ := newTestServer(t)
	writeArticles(st, "BBC", "T1", "T2", "T3")

	body := getJSON(t, ts.URL+"/api/news/bbc?page=1&limit=2", http.StatusOK)
	response := body["response"].(map[string]any)
	if items := response["items"].([]any); len(items) != 1 {
		t.Errorf("page 1 items = %v", items)
	}

	body = getJSON(t, ts.URL+"/api/news/bbc?page=5&limit=2", http.StatusNotFound)
	if body["message"] != "Could not find page: 5" {
		t.Errorf("message = %v", body["message"])
	}

	resp, err := http.Get(ts.URL + "/api/news/bbc?limit=two")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-integer limit status = %d, want 400", resp.StatusCode)
	}
}

func TestItemsEndpoint(t *testing.T) {
	ts, st, _ := newTestServer(t)
	writeArticles(st, "BBC", "T1")
	writeArticles(st, "SKY", "T2")

	body := getJSON(t, ts.URL+"/api/news/items", http.StatusOK)
	if items := body["response"].([]any); len(items) != 2 {
		t.Errorf("flattened items = %v", items)
	}

	getJSON(t, ts.URL+"/api/news/items?sort=ASC", http.StatusOK)
	getJSON(t, ts.URL+"/api/weather/items", http.StatusNotFound)
}

func TestItemByIDEndpoint(t *testing.T) {
	ts, st, _ := newTestServer(t)
	writeArticles(st, "BBC", "T1")

	view, err := st.Search("NEWS", "BBC", store.Page{})
	if err != nil {
		t.Fatal(err)
	}
	id := view.Items[0].ID

	body := getJSON(t, ts.URL+"/api/news/items/"+id, http.StatusOK)
	item := body["response"].(map[string]any)
	if item["id"] != id || item["title"] != "T1" {
		t.Errorf("item = %v", item)
	}

	body = getJSON(t, ts.URL+"/api/news/items/nonexistent", http.StatusNotFound)
	if body["message"] != "Could not find item: nonexistent in NEWS" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestEventsEndpointStreamsUpdates(t *testing.T) {
	ts, _, bus := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		t.Fatalf("GET /api/events failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q", got)
	}

	// The subscription races the request; keep publishing until a line
	// arrives or the deadline passes.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.Publish(eventbus.Event{
					Type: eventbus.EventTypeStoreUpdate,
					Data: map[string]any{"namespace": "NEWS"},
				})
			}
		}
	}()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			if !strings.Contains(line, `"namespace":"NEWS"`) {
				t.Errorf("event payload = %q", line)
			}
			return
		}
	}
	t.Fatal("stream closed without delivering an event")
}
