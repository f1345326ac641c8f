package dataapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	testToken    = "AstraCS:test"
	testKeyspace = "default_keyspace"
)

// fakeAPI is an in memory stand in for the Data API that validates vectors the
// way a strict server does: wrong lengths, strings and non finite numbers are rejected
type fakeAPI struct {
	mu       sync.Mutex
	dims     map[string]int
	docs     map[string]map[string]map[string]any
	calls    []string
	unavail  int // number of 503 responses to send before answering
	lenient  bool
	requests int
	// commitThenFail is the number of successful writes to answer with a 503
	commitThenFail int
}

// codedError is an errors array entry with a specific errorCode
type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string {
	return e.msg
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	f := &fakeAPI{
		dims: make(map[string]int),
		docs: make(map[string]map[string]map[string]any),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	if r.Header.Get("Token") != testToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if f.unavail > 0 {
		f.unavail--
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
		return
	}
	prefix := apiPath + "/" + testKeyspace
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "unknown keyspace", http.StatusNotFound)
		return
	}
	target := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	body, _ := io.ReadAll(r.Body)
	if !f.lenient && (bytes.Contains(body, []byte("NaN")) || bytes.Contains(body, []byte("Infinity"))) {
		f.reply(w, nil, nil, fmt.Errorf("invalid JSON: non-numeric numbers are not allowed"))
		return
	}
	if f.lenient {
		body = bytes.ReplaceAll(body, []byte("-Infinity"), []byte("0"))
		body = bytes.ReplaceAll(body, []byte("Infinity"), []byte("0"))
		body = bytes.ReplaceAll(body, []byte("NaN"), []byte("0"))
	}

	var cmd map[string]map[string]any
	if err := json.Unmarshal(body, &cmd); err != nil || len(cmd) != 1 {
		http.Error(w, "malformed command", http.StatusBadRequest)
		return
	}
	for name, args := range cmd {
		f.calls = append(f.calls, target+":"+name)
		status, data, err := f.handle(target, name, args)
		if err == nil && f.commitThenFail > 0 && writeCommands[name] {
			f.commitThenFail--
			http.Error(w, "gateway timeout after commit", http.StatusServiceUnavailable)
			return
		}
		f.reply(w, status, data, err)
	}
}

func (f *fakeAPI) reply(w http.ResponseWriter, status, data map[string]any, err error) {
	out := map[string]any{}
	if status != nil {
		out["status"] = status
	}
	if data != nil {
		out["data"] = data
	}
	if err != nil {
		code := "INVALID_REQUEST"
		var coded *codedError
		if errors.As(err, &coded) {
			code = coded.code
		}
		out["errors"] = []map[string]any{{"message": err.Error(), "errorCode": code}}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (f *fakeAPI) handle(target, name string, args map[string]any) (map[string]any, map[string]any, error) {
	ok := map[string]any{"ok": 1}
	switch name {
	case "findCollections":
		names := []any{}
		for n := range f.dims {
			names = append(names, n)
		}
		return map[string]any{"collections": names}, nil, nil
	case "dropTable", "deleteCollection":
		n, _ := args["name"].(string)
		delete(f.dims, n)
		delete(f.docs, n)
		return ok, nil, nil
	case "createTable":
		n, _ := args["name"].(string)
		dim := dig(args, "definition", "columns", "embedding", "dimension")
		f.dims[n] = int(dim.(float64))
		f.docs[n] = make(map[string]map[string]any)
		return ok, nil, nil
	case "createCollection":
		n, _ := args["name"].(string)
		dim := dig(args, "options", "vector", "dimension")
		f.dims[n] = int(dim.(float64))
		f.docs[n] = make(map[string]map[string]any)
		return ok, nil, nil
	}

	dim, exists := f.dims[target]
	if !exists {
		return nil, nil, fmt.Errorf("%s does not exist", target)
	}
	switch name {
	case "createVectorIndex":
		return ok, nil, nil
	case "insertOne":
		doc, _ := args["document"].(map[string]any)
		id, err := f.store(target, dim, doc)
		if err != nil {
			return nil, nil, err
		}
		return map[string]any{"insertedIds": []any{id}}, nil, nil
	case "insertMany":
		docs, _ := args["documents"].([]any)
		ids := []any{}
		for _, d := range docs {
			id, err := f.store(target, dim, d.(map[string]any))
			if err != nil {
				return nil, nil, err
			}
			ids = append(ids, id)
		}
		return map[string]any{"insertedIds": ids}, nil, nil
	case "findOne":
		filter, _ := args["filter"].(map[string]any)
		for _, key := range []string{"id", "_id"} {
			if id, ok := filter[key].(string); ok {
				return nil, map[string]any{"document": f.docs[target][id]}, nil
			}
		}
		return nil, map[string]any{"document": nil}, nil
	case "find":
		limit := int(dig(args, "options", "limit").(float64))
		docs := []any{}
		for _, d := range f.docs[target] {
			if len(docs) == limit {
				break
			}
			docs = append(docs, d)
		}
		return nil, map[string]any{"documents": docs}, nil
	}
	return nil, nil, fmt.Errorf("unknown command %s", name)
}

func (f *fakeAPI) store(target string, dim int, doc map[string]any) (string, error) {
	for _, field := range []string{"embedding", "$vector"} {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		list, isList := v.([]any)
		if !isList {
			return "", fmt.Errorf("%s must be a list of floats", field)
		}
		if len(list) != dim {
			return "", fmt.Errorf("dimension mismatch: expected %d, got %d", dim, len(list))
		}
	}
	id, _ := doc["id"].(string)
	if id == "" {
		id, _ = doc["_id"].(string)
		// collections reject a second document with the same _id, table rows upsert
		if _, dup := f.docs[target][id]; dup {
			return "", &codedError{code: errCodeDocumentExists, msg: fmt.Sprintf("document with _id %s already exists", id)}
		}
	}
	f.docs[target][id] = doc
	return id, nil
}

func dig(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		next, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = next[p]
	}
	return cur
}
