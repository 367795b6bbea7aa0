//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	ports "kakeibo/internal/sheets"
)

// Integration tests require a real spreadsheet and credentials.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_RowStoreFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	saJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	if spreadsheetID == "" || saJSON == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID or GOOGLE_SERVICE_ACCOUNT_JSON not set, skipping integration test")
	}
	sheet := os.Getenv("INTEGRATION_SHEET")
	if sheet == "" {
		t.Skip("INTEGRATION_SHEET not set; the test overwrites that sheet")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	svc, err := NewService(ctx, Credentials{ServiceAccountJSON: []byte(saJSON)})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	client, err := New(svc, Options{SpreadsheetID: spreadsheetID, RequestsPerMinute: 50})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	want := ports.Snapshot{
		Header: []string{"item", "place", "expected_price", "status", "memo"},
		Rows:   [][]string{{"integration", "test", "1", "pending", ""}},
	}
	if err := client.ReplaceSnapshot(ctx, sheet, want); err != nil {
		t.Fatalf("Failed to replace: %v", err)
	}
	if err := client.UpdateCell(ctx, sheet, 0, 3, "purchased"); err != nil {
		t.Fatalf("Failed to update cell: %v", err)
	}
	if err := client.Append(ctx, sheet, []string{"second", "", "2", "pending"}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	got, err := client.ReadAll(ctx, sheet)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if len(got.Rows) != 2 || got.Rows[0][3] != "purchased" || got.Rows[1][0] != "second" {
		t.Errorf("Unexpected sheet content: %+v", got)
	}
}
