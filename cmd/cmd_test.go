package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classesCSV = `name,start,end,daysOfTheWeek,recurr,exclude
T09A,2021-02-17 09:00,2021-02-17 11:00,,8,
T10B,2021-02-18 10:00,2021-02-18 12:00,"mo, th",,
OLD,2021-02-19 10:00,2021-02-19 12:00,,,yes
`

const courseJSON = `{
  "description": "COMP1511 tutorial",
  "recurrenceType": "weekly",
  "recurrenceEndType": "after_occurrences_count",
  "numberOfOccurrences": 10
}`

func fixtures(t *testing.T) (dir, classes, course string) {
	t.Helper()
	dir = t.TempDir()
	classes = filepath.Join(dir, "classes.csv")
	course = filepath.Join(dir, "course.json")
	require.NoError(t, os.WriteFile(classes, []byte(classesCSV), 0o644))
	require.NoError(t, os.WriteFile(course, []byte(courseJSON), 0o644))
	return dir, classes, course
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cfgPath, debug, cfg = "", false, nil
	tokenFile, limit, dryRun = "", 0, false
	historyQuery.run, historyQuery.name, historyQuery.status, historyQuery.format = "", "", "", "table"
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestResolveCommand(t *testing.T) {
	_, classes, course := fixtures(t)
	out, _, err := execute(t, "", "resolve", classes, course)
	require.NoError(t, err)

	var sessions []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 2)
	assert.Equal(t, "T09A", sessions[0]["name"])
	assert.Equal(t, "P", sessions[0]["occurrenceType"])
	assert.Equal(t, "COMP1511 tutorial", sessions[0]["description"])
	assert.Equal(t, float64(8), sessions[0]["recurrenceRule"].(map[string]any)["numberOfOccurrences"])

	// occurrenceType comes from the class row, which names no end type
	assert.Equal(t, "S", sessions[1]["occurrenceType"])
	rule := sessions[1]["recurrenceRule"].(map[string]any)
	assert.Equal(t, []any{"mo", "th"}, rule["daysOfTheWeek"])
	assert.Equal(t, float64(10), rule["numberOfOccurrences"])
}

func TestUploadDryRun(t *testing.T) {
	_, classes, course := fixtures(t)
	out, errOut, err := execute(t, "", "upload", "--dry-run", classes, course)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "T09A"`)
	assert.Contains(t, errOut, "1 skipped")
	assert.Contains(t, errOut, "2 resolved (dry run)")
}

func TestUploadAgainstServer(t *testing.T) {
	dir, classes, course := fixtures(t)
	var created atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method == http.MethodPost {
			n := created.Add(1)
			_, _ = w.Write([]byte(`{"id":"s` + string(rune('0'+n)) + `","guestUrl":"https://guest.example/` + string(rune('0'+n)) + `"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ledgerPath := filepath.Join(dir, "uploads.jsonl")
	t.Setenv("COLLAB_API__BASE_URL", srv.URL)
	t.Setenv("COLLAB_UPLOAD__DELAY_MS", "0")
	t.Setenv("COLLAB_UPLOAD__LEDGER_PATH", ledgerPath)

	out, errOut, err := execute(t, "secret\n", "upload", classes, course)
	require.NoError(t, err, errOut)
	assert.Equal(t, int32(2), created.Load())
	assert.Equal(t, "https://guest.example/1\nhttps://guest.example/2\n", out)
	assert.Contains(t, errOut, "2 created, 0 failed, 0 invalid, 1 skipped")

	data, err := os.ReadFile(ledgerPath)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))

	out, _, err = execute(t, "", "history", "--status", "created")
	require.NoError(t, err)
	assert.Contains(t, out, "T09A")
	assert.Contains(t, out, "T10B")
	assert.NotContains(t, out, "OLD")

	out, _, err = execute(t, "", "history", "--format", "csv", "--name", "T10B")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,run_id,row,name,status"))
	assert.Contains(t, lines[1], ",T10B,created,")
}

func TestUploadRejectedToken(t *testing.T) {
	_, classes, course := fixtures(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	t.Setenv("COLLAB_API__BASE_URL", srv.URL)

	_, _, err := execute(t, "wrong\n", "upload", classes, course)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestDeleteCommand(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			path = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	t.Setenv("COLLAB_API__BASE_URL", srv.URL)

	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("secret"), 0o600))

	deleteTokenFile = ""
	out, _, err := execute(t, "", "delete", "--token-file", tokenPath, "sess1", "occ2")
	require.NoError(t, err)
	assert.Equal(t, "/sessions/sess1/occurrences/occ2", path)
	assert.Contains(t, out, "deleted occurrence occ2")
}
