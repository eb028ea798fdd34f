// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
logger:
  level: error
cache:
  driver: none
`

type cliEnv struct {
	dir      string
	config   string
	settings string
}

// newCLIEnv isolates HOME and points the CLI at a temp config and settings file.
func newCLIEnv(t *testing.T, extraConfig string) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	env := cliEnv{
		dir:      dir,
		config:   filepath.Join(dir, "config.yaml"),
		settings: filepath.Join(dir, "settings.yaml"),
	}
	require.NoError(t, os.WriteFile(env.config, []byte(testConfigYAML+extraConfig), 0o600))
	return env
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.config, "--settings", e.settings}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e cliEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t, "")
	out, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestConfigSetGet(t *testing.T) {
	env := newCLIEnv(t, "")

	out, err := env.run(t, "config", "set", "base_url", "https://api.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "saved base_url")

	_, err = env.run(t, "config", "set", "api_key", "secret-token-1234")
	require.NoError(t, err)

	out, err = env.run(t, "config", "get", "base_url")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com\n", out)

	out, err = env.run(t, "config", "get")
	require.NoError(t, err)
	assert.Equal(t, "api_key=****1234\nbase_url=https://api.example.com\nsession_id=\n", out)

	_, err = env.run(t, "config", "set", "proxy", "x")
	assert.Error(t, err)
}

func TestSessionCreateFallsBackToLocalID(t *testing.T) {
	env := newCLIEnv(t, "")

	out, err := env.run(t, "session", "create", "--user", "u-1")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "no REST backend configured, so a local UUID is issued")

	out, err = env.run(t, "config", "get", "session_id")
	require.NoError(t, err)
	assert.Equal(t, id+"\n", out)

	_, err = env.run(t, "session", "create")
	assert.Error(t, err, "--user is required")
}

func TestAnswersCommandStaticSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"answers":{"What is your family name?":"Doe","Date of birth":"May 4, 2003"}}`)
	}))
	defer srv.Close()

	env := newCLIEnv(t, "")
	_, err := env.run(t, "config", "set", "base_url", srv.URL+"/answers.json")
	require.NoError(t, err)

	out, err := env.run(t, "answers", "--json", "--session", "s1")
	require.NoError(t, err)
	assert.Equal(t, `{"what is your family name":"Doe","date of birth":"May 4, 2003"}`+"\n", out)

	out, err = env.run(t, "answers", "--session", "s1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "what is your family name"))
	assert.True(t, strings.HasSuffix(lines[1], "May 4, 2003"))
}

const savedPage = `<!DOCTYPE html><html><body><form>
<fieldset><legend>What country issued your passport?</legend>
<select id="country"><option value="">Select</option><option>Canada</option><option>India</option></select></fieldset>
<fieldset><legend>Family name</legend><input id="family" type="text"></fieldset>
<button>Next</button>
</form></body></html>`

func TestFillCommandOffline(t *testing.T) {
	env := newCLIEnv(t, "")
	page := env.write(t, "page.html", savedPage)
	answersFile := env.write(t, "answers.json", `{"What country issued your passport":"India","Family name":"Doe"}`)

	out, err := env.run(t, "fill", page, "--answers", answersFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Auto-filled 2 fields")
	assert.Contains(t, out, "advanced: false")

	filled, err := os.ReadFile(filepath.Join(env.dir, "page.filled.html"))
	require.NoError(t, err)
	assert.Contains(t, string(filled), `<option selected="selected">India</option>`)
	assert.Contains(t, string(filled), `value="Doe"`)

	// The filled page has nothing left to do.
	out, err = env.run(t, "fill", filepath.Join(env.dir, "page.filled.html"), "--answers", answersFile, "-o", filepath.Join(env.dir, "again.html"))
	require.NoError(t, err)
	assert.Contains(t, out, "No new fields to fill")
}

func TestFillCommandAdvance(t *testing.T) {
	env := newCLIEnv(t, "")
	page := env.write(t, "page.html", savedPage)
	answersFile := env.write(t, "answers.json", `{"What country issued your passport":"India","Family name":"Doe"}`)

	out, err := env.run(t, "fill", page, "--answers", answersFile, "--advance", "-o", filepath.Join(env.dir, "out.html"))
	require.NoError(t, err)
	assert.Contains(t, out, "advanced: true")
}

func TestFillCommandErrors(t *testing.T) {
	env := newCLIEnv(t, "")

	_, err := env.run(t, "fill")
	assert.Error(t, err)

	_, err = env.run(t, "fill", filepath.Join(env.dir, "missing.html"))
	assert.Error(t, err)

	page := env.write(t, "page.html", savedPage)
	bad := env.write(t, "bad.json", `not json`)
	_, err = env.run(t, "fill", page, "--answers", bad)
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	env := newCLIEnv(t, "answers:\n  source: carrier-pigeon\n")
	_, err := env.run(t, "answers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source must be one of")
}
