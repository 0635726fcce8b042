package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestEvaluateCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("stdin", func(t *testing.T) {
		out, err := run(t, `{"email_account.pdf": "not-an-email"}`, "evaluate")
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		assert.Equal(t, "Reject", body["decision"])
		assert.Equal(t, "stdin", body["client_id"])
		assert.Equal(t, []any{[]any{"email_account.pdf", "not-an-email", "Invalid email"}}, body["invalid_data"])
	})

	t.Run("file names the client", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "client_data_12.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"date_of_birth_profile.docx": "1990-05-02", "birth_date_passport.png": "02-May-1990"}`), 0o600))

		out, err := run(t, "", "evaluate", path)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		assert.Equal(t, "12", body["client_id"])
		assert.Equal(t, "Accept", body["decision"])
	})

	t.Run("malformed snapshot", func(t *testing.T) {
		_, err := run(t, `[1, 2]`, "evaluate", "-")
		require.Error(t, err)
	})
}

func TestBatchCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	write("client_data_100.json", `{"email_account.pdf": "ana@example.com"}`)
	write("client_data_700.json", `{"email_account.pdf": "bad"}`)
	write("client_data_200.json", `{"email_account.pdf": "bad"}`)

	t.Run("modulo labels", func(t *testing.T) {
		out, err := run(t, "", "batch", "--dir", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "evaluated: 3\n")
		assert.Contains(t, out, "correct: 2\n")
		assert.Contains(t, out, "false negatives: 1\n  200 expected Accept\n")
		assert.Contains(t, out, "accuracy: 66.67%\n")
	})

	t.Run("labels file", func(t *testing.T) {
		labels := filepath.Join(t.TempDir(), "labels.json")
		require.NoError(t, os.WriteFile(labels, []byte(`{"100": "accept", "200": "reject"}`), 0o600))

		out, err := run(t, "", "batch", "--dir", dir, "--labels", labels, "-v")
		require.NoError(t, err)
		assert.Contains(t, out, "labeled: 2\n")
		assert.Contains(t, out, "accuracy: 100.00%\n")
		assert.Contains(t, out, "700\tReject\t")
	})

	t.Run("bad label value", func(t *testing.T) {
		labels := filepath.Join(t.TempDir(), "labels.json")
		require.NoError(t, os.WriteFile(labels, []byte(`{"100": "maybe"}`), 0o600))

		_, err := run(t, "", "batch", "--dir", dir, "--labels", labels)
		require.Error(t, err)
	})
}

func TestPlayCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	profile := base64.StdEncoding.EncodeToString([]byte(`{"email": "ana@example.com"}`))
	var decisions []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/start":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"session_id":  "s-1",
				"client_id":   "c-1",
				"client_data": map[string]string{"profile.docx": profile},
			})
		case "/decision":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			decisions = append(decisions, body["decision"])
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "gameover", "score": 1})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("requires the game url", func(t *testing.T) {
		_, err := run(t, "", "play")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GAME_API_URL")
	})

	t.Run("engine plays until game over", func(t *testing.T) {
		t.Setenv("GAME_API_URL", server.URL)
		out, err := run(t, "", "play")
		require.NoError(t, err)
		assert.Equal(t, "session s-1: 1 rounds, status gameover, score 1\n", out)
		assert.Equal(t, []string{"Accept"}, decisions)
	})

	t.Run("manual decisions", func(t *testing.T) {
		t.Setenv("GAME_API_URL", server.URL)
		decisions = nil
		out, err := run(t, "reject\n", "play", "--manual")
		require.NoError(t, err)
		assert.Contains(t, out, "Choose your action (Accept/Reject): ")
		assert.Equal(t, []string{"Reject"}, decisions)
	})
}
