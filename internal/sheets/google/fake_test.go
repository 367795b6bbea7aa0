package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
)

const testSpreadsheet = "sheet-123"

// fakeSheets serves the subset of the Sheets v4 values API the client uses,
// keeping each sheet as a grid of JSON values.
type fakeSheets struct {
	mu       sync.Mutex
	grids    map[string][][]interface{}
	calls    []string
	failures []int // status codes returned before serving normally
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{grids: map[string][][]interface{}{}}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/" + testSpreadsheet + "/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	op := r.Method
	if i := strings.LastIndex(rest, ":"); i > 0 && !strings.Contains(rest[i:], "!") {
		op = rest[i+1:]
		rest = rest[:i]
	}
	f.calls = append(f.calls, op)

	if len(f.failures) > 0 {
		code := f.failures[0]
		f.failures = f.failures[1:]
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":{"code":` + strconv.Itoa(code) + `,"message":"injected"}}`))
		return
	}

	sheet, row, col := parseRange(rest)
	var body struct {
		Values [][]interface{} `json:"values"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	switch op {
	case http.MethodGet:
		writeJSON(w, map[string]any{"range": rest, "majorDimension": "ROWS", "values": f.grids[sheet]})
	case "append":
		f.grids[sheet] = append(f.grids[sheet], body.Values...)
		writeJSON(w, map[string]any{"spreadsheetId": testSpreadsheet})
	case "clear":
		delete(f.grids, sheet)
		writeJSON(w, map[string]any{"spreadsheetId": testSpreadsheet})
	case http.MethodPut:
		grid := f.grids[sheet]
		for i, vals := range body.Values {
			for len(grid) <= row+i {
				grid = append(grid, []interface{}{})
			}
			for j, v := range vals {
				for len(grid[row+i]) <= col+j {
					grid[row+i] = append(grid[row+i], "")
				}
				grid[row+i][col+j] = v
			}
		}
		f.grids[sheet] = grid
		writeJSON(w, map[string]any{"spreadsheetId": testSpreadsheet})
	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

// parseRange understands "'Name'" and "'Name'!B3".
func parseRange(rng string) (sheet string, row, col int) {
	name, cell, _ := strings.Cut(rng, "!")
	sheet = strings.ReplaceAll(strings.Trim(name, "'"), "''", "'")
	if cell == "" {
		return sheet, 0, 0
	}
	i := 0
	col = 0
	for i < len(cell) && cell[i] >= 'A' && cell[i] <= 'Z' {
		col = col*26 + int(cell[i]-'A'+1)
		i++
	}
	n, _ := strconv.Atoi(cell[i:])
	return sheet, n - 1, col - 1
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeSheets, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := NewService(context.Background(), Credentials{},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	opts.SpreadsheetID = testSpreadsheet
	if opts.BaseBackoff == 0 {
		opts.BaseBackoff = time.Millisecond
	}
	c, err := New(svc, opts)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}
