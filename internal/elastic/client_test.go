package elastic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sha1n/docindex/internal/domain"
	"github.com/sha1n/docindex/internal/search"
)

const testIndex = "document_index"

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeCluster is a minimal Elasticsearch stand-in for a single index.
type fakeCluster struct {
	mu           sync.Mutex
	indexExists  bool
	requests     []recordedRequest
	searchStatus int
	searchBody   string
	bulkBody     string
	createBody   string
	createStatus int
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
	})

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead && r.URL.Path == "/"+testIndex:
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/"+testIndex:
		status := f.createStatus
		if status == 0 {
			status = http.StatusOK
			f.indexExists = true
		}
		w.WriteHeader(status)
		if f.createBody != "" {
			_, _ = w.Write([]byte(f.createBody))
		} else {
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		_, _ = w.Write([]byte(f.bulkBody))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		status := f.searchStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(f.searchBody))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeCluster) lastRequest(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("Expected at least one request")
	}
	return f.requests[len(f.requests)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, cluster *fakeCluster) *Client {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := New(Config{URL: srv.URL, Index: testIndex}, discardLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Index: testIndex}, discardLogger()); err == nil {
		t.Error("Expected error for empty URL")
	}
	if _, err := New(Config{URL: "http://localhost:9200"}, discardLogger()); err == nil {
		t.Error("Expected error for empty index")
	}
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(t, &fakeCluster{})
	if client.Name() != EngineName {
		t.Errorf("Expected %q, got %q", EngineName, client.Name())
	}
	if client.Index() != testIndex {
		t.Errorf("Expected index %q, got %q", testIndex, client.Index())
	}
}

func TestClient_Ping(t *testing.T) {
	client := newTestClient(t, &fakeCluster{})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestEnsureIndex_CreatesMapping(t *testing.T) {
	cluster := &fakeCluster{}
	client := newTestClient(t, cluster)

	if err := client.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex failed: %v", err)
	}

	req := cluster.lastRequest(t)
	if req.Method != http.MethodPut {
		t.Fatalf("Expected PUT, got %s", req.Method)
	}

	var m Mapping
	if err := json.Unmarshal([]byte(req.Body), &m); err != nil {
		t.Fatalf("Failed to decode mapping: %v", err)
	}

	props := m.Mappings.Properties
	for _, field := range []string{domain.FieldFileName, domain.FieldFilePath} {
		fm := props[field]
		if fm.Type != "text" {
			t.Errorf("Expected %s to be text, got %q", field, fm.Type)
		}
		if fm.Fields["keyword"].Type != "keyword" {
			t.Errorf("Expected %s to have a keyword sibling, got %+v", field, fm.Fields)
		}
	}
	if props[domain.FieldFileType].Type != "keyword" || props[domain.FieldFileType].Fields != nil {
		t.Errorf("Expected file_type to be keyword only, got %+v", props[domain.FieldFileType])
	}
	if props[domain.FieldFileSize].Type != "long" {
		t.Errorf("Expected file_size to be long, got %+v", props[domain.FieldFileSize])
	}
	if props[domain.FieldContent].Type != "text" || props[domain.FieldContent].Fields != nil {
		t.Errorf("Expected content to be text only, got %+v", props[domain.FieldContent])
	}
}

func TestEnsureIndex_ExistingIndexUntouched(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	client := newTestClient(t, cluster)

	if err := client.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex failed: %v", err)
	}
	for _, r := range cluster.requests {
		if r.Method == http.MethodPut {
			t.Error("Expected no create request for an existing index")
		}
	}
}

func TestEnsureIndex_RaceWithOtherWriter(t *testing.T) {
	cluster := &fakeCluster{
		createStatus: http.StatusBadRequest,
		createBody:   `{"error":{"type":"resource_already_exists_exception","reason":"index exists"},"status":400}`,
	}
	client := newTestClient(t, cluster)

	if err := client.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("Expected already-exists to be tolerated, got %v", err)
	}
}

func TestIndexDocuments_UpsertByPathAndPartialFailure(t *testing.T) {
	cluster := &fakeCluster{
		indexExists: true,
		bulkBody: `{"took":3,"errors":true,"items":[
			{"index":{"_id":"/data/a.pdf","status":201}},
			{"index":{"_id":"/data/b.csv","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad size"}}}
		]}`,
	}
	client := newTestClient(t, cluster)

	docs := []domain.DocumentRecord{
		{FileName: "a.pdf", FilePath: "/data/a.pdf", FileType: "pdf", Content: "alpha", FileSize: 10},
		{FileName: "b.csv", FilePath: "/data/b.csv", FileType: "csv", Content: "beta", FileSize: 20},
	}

	result, err := client.IndexDocuments(context.Background(), docs)
	if err != nil {
		t.Fatalf("IndexDocuments failed: %v", err)
	}
	if result.Indexed != 1 {
		t.Errorf("Expected 1 indexed, got %d", result.Indexed)
	}
	if len(result.Failed) != 1 || result.Failed[0].Document.FilePath != "/data/b.csv" {
		t.Fatalf("Expected b.csv to fail, got %+v", result.Failed)
	}
	if !strings.Contains(result.Failed[0].Reason, "mapper_parsing_exception") {
		t.Errorf("Expected failure reason, got %q", result.Failed[0].Reason)
	}

	req := cluster.lastRequest(t)
	if !strings.Contains(req.Query, "refresh=wait_for") {
		t.Errorf("Expected refresh=wait_for, got %q", req.Query)
	}

	scanner := bufio.NewScanner(strings.NewReader(req.Body))
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 4 {
		t.Fatalf("Expected 4 NDJSON lines, got %d", len(lines))
	}

	var action bulkAction
	if err := json.Unmarshal([]byte(lines[0]), &action); err != nil {
		t.Fatalf("Failed to decode action: %v", err)
	}
	if action.Index.ID != "/data/a.pdf" {
		t.Errorf("Expected _id to be the file path, got %q", action.Index.ID)
	}

	var doc domain.DocumentRecord
	if err := json.Unmarshal([]byte(lines[1]), &doc); err != nil {
		t.Fatalf("Failed to decode document: %v", err)
	}
	if doc != docs[0] {
		t.Errorf("Expected document %+v, got %+v", docs[0], doc)
	}
}

func TestIndexDocuments_Empty(t *testing.T) {
	cluster := &fakeCluster{}
	client := newTestClient(t, cluster)

	result, err := client.IndexDocuments(context.Background(), nil)
	if err != nil {
		t.Fatalf("IndexDocuments failed: %v", err)
	}
	if result.Indexed != 0 || len(cluster.requests) != 0 {
		t.Error("Expected no request for an empty batch")
	}
}

func TestIndexDocuments_ItemCountMismatch(t *testing.T) {
	cluster := &fakeCluster{bulkBody: `{"errors":false,"items":[]}`}
	client := newTestClient(t, cluster)

	_, err := client.IndexDocuments(context.Background(), []domain.DocumentRecord{{FilePath: "/x.pdf"}})
	if !errors.Is(err, domain.ErrUnexpectedResponse) {
		t.Errorf("Expected ErrUnexpectedResponse, got %v", err)
	}
}

func TestSearch_SendsBuiltRequestAndNormalizes(t *testing.T) {
	cluster := &fakeCluster{
		indexExists: true,
		searchBody: `{"hits":{"hits":[
			{"_id":"/data/a.pdf","_score":1.2,"_source":{"file_name":"a.pdf","file_path":"/data/a.pdf","file_type":"pdf","content":"annual budget","file_size":2000},"highlight":{"content":["annual <em>budget</em>"]}}
		]}}`,
	}
	client := newTestClient(t, cluster)

	req := domain.SearchRequest{QueryText: domain.Ptr("budget"), FileType: domain.Ptr("pdf")}
	results, err := client.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].FileName != "a.pdf" {
		t.Fatalf("Unexpected results: %+v", results)
	}
	if results[0].Score == nil || *results[0].Score != 1.2 {
		t.Errorf("Expected score 1.2, got %v", results[0].Score)
	}
	if len(results[0].Highlights) != 1 {
		t.Errorf("Expected 1 highlight, got %v", results[0].Highlights)
	}

	sent := cluster.lastRequest(t)
	if sent.Path != "/"+testIndex+"/_search" {
		t.Errorf("Expected search on %s, got %s", testIndex, sent.Path)
	}

	expected, _ := json.Marshal(search.BuildRequest(req))
	if strings.TrimSpace(sent.Body) != string(expected) {
		t.Errorf("Request body mismatch:\n got: %s\nwant: %s", sent.Body, expected)
	}
}

func TestSearch_MissingIndex(t *testing.T) {
	cluster := &fakeCluster{
		searchStatus: http.StatusNotFound,
		searchBody:   `{"error":{"type":"index_not_found_exception","reason":"no such index [document_index]"},"status":404}`,
	}
	client := newTestClient(t, cluster)

	_, err := client.Search(context.Background(), domain.SearchRequest{})
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("Expected ErrIndexNotFound, got %v", err)
	}

	svc := search.NewService(client, discardLogger())
	results, err := svc.Search(context.Background(), domain.SearchRequest{})
	if err != nil {
		t.Fatalf("Expected service to absorb a missing index, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}

func TestSearch_BadRequest(t *testing.T) {
	cluster := &fakeCluster{
		searchStatus: http.StatusBadRequest,
		searchBody:   `{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"},"status":400}`,
	}
	client := newTestClient(t, cluster)

	_, err := client.Search(context.Background(), domain.SearchRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
	var engErr *domain.EngineError
	if !errors.As(err, &engErr) || engErr.Op != opSearch {
		t.Errorf("Expected EngineError for %q, got %v", opSearch, err)
	}
}

func TestClient_ConnectivityFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := New(Config{URL: url, Index: testIndex}, discardLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := client.Search(context.Background(), domain.SearchRequest{}); !errors.Is(err, domain.ErrConnectivity) {
		t.Errorf("Search: expected ErrConnectivity, got %v", err)
	}
	if err := client.EnsureIndex(context.Background()); !errors.Is(err, domain.ErrConnectivity) {
		t.Errorf("EnsureIndex: expected ErrConnectivity, got %v", err)
	}
	if _, err := client.IndexDocuments(context.Background(), []domain.DocumentRecord{{FilePath: "/a.pdf"}}); !errors.Is(err, domain.ErrConnectivity) {
		t.Errorf("IndexDocuments: expected ErrConnectivity, got %v", err)
	}
}
