package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "kakeibo.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("PARTICIPANT_A", "Riku")
	t.Setenv("PARTICIPANT_B", "Mei")
	t.Setenv("MONTHLY_BUDGET", "")
	t.Setenv("HOUSEHOLD_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("kakeiboctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestRecordThenSettle(t *testing.T) {
	setupEnv(t)

	out := run(t, "record", "--period", "2025-03", "--date", "2025-03-04", "--category", "食費",
		"--amount", "1000", "--payer", "Riku", "--split", "shared", "--memo", "groceries")
	if !strings.Contains(out, "groceries") || !strings.Contains(out, "1,000 円") {
		t.Fatalf("record output:\n%s", out)
	}

	out = run(t, "settle", "--period", "2025-03")
	for _, want := range []string{"Settlement 2025-03", "Mei -> Riku", "500 円"} {
		if !strings.Contains(out, want) {
			t.Errorf("settle output lacks %q:\n%s", want, out)
		}
	}

	out = run(t, "history", "--period", "2025-04")
	if !strings.Contains(out, "No records for 2025-04") {
		t.Errorf("history output:\n%s", out)
	}

	out = run(t, "breakdown", "--period", "2025-03", "--by", "payer")
	if !strings.Contains(out, "Riku") {
		t.Errorf("breakdown output:\n%s", out)
	}
}

func TestShoppingCommands(t *testing.T) {
	setupEnv(t)

	run(t, "shopping", "add", "milk", "--place", "Aeon", "--price", "198")
	out := run(t, "shopping", "list")
	if !strings.Contains(out, "milk") || !strings.Contains(out, "[ ]") {
		t.Fatalf("list output:\n%s", out)
	}
	out = run(t, "shopping", "toggle", "0")
	if !strings.Contains(out, "milk is now purchased") {
		t.Fatalf("toggle output:\n%s", out)
	}
}

func TestRecordRejectsBadAmount(t *testing.T) {
	setupEnv(t)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"record", "--category", "食費", "--amount", "abc", "--payer", "A"})
	if err := rootCmd.Execute(); err == nil || !strings.Contains(err.Error(), "--amount") {
		t.Fatalf("err = %v, want an --amount error", err)
	}
}

func TestWriteTokenIsPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := writeToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"refresh_token":"r"`) {
		t.Errorf("token file = %s", data)
	}
}
