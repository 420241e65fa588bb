package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completeStatusJSON = `{
  "incident_id": "inc-42",
  "status": "complete",
  "created_at": "2026-03-01T09:00:00.000000",
  "completed_at": "2026-03-01T09:01:32.000000",
  "risk_assessment": {"score": "91", "classification": "CRITICAL", "factors": ["linked to prior cases"]},
  "pattern_analysis": {"linked_cases": 3, "network_size": 12, "cases_searched": "1500", "victims_identified": 2},
  "alert_dispatch": {"agencies": [{"name": "NCMEC", "sms_sent": true, "email_sent": true}]}
}`

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestSubmitSavesSessionAtAnalysis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/prod/incidents", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "phone", body["indicator_type"])
		assert.Equal(t, "+1 555 0100", body["indicator_value"])
		assert.Equal(t, "web_ui", body["source"])

		_, _ = fmt.Fprint(w, `{"incident_id":"inc-42","status":"processing"}`)
	}))
	defer server.Close()
	t.Setenv("INCIDENT_API_BASE_URL", server.URL+"/prod")

	home := t.TempDir()

	stdout, stderr, err := executeCLI(t, home, "submit", "--type", "phone", "--value", "+1 555 0100")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Incident inc-42 submitted (status: processing)")
	assert.Contains(t, stderr, "Submitting phone indicator")

	stdout, _, err = executeCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "incident: inc-42")
	assert.Contains(t, stdout, "analysis (screen2)")

	data, err := os.ReadFile(filepath.Join(home, ".incident", "session.json"))
	require.NoError(t, err)
	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "inc-42", doc["trafficking_alert_session"]["incident_id"])
	assert.Equal(t, "screen2", doc["trafficking_alert_session"]["current_screen"])
}

func TestSubmitRejectsInvalidIndicatorWithoutCallingAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()
	t.Setenv("INCIDENT_API_BASE_URL", server.URL)

	_, _, err := executeCLI(t, t.TempDir(), "submit", "--type", "phone", "--value", "call me")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid indicator")
}

func TestSubmitSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"error":"indicator_value is required"}`)
	}))
	defer server.Close()
	t.Setenv("INCIDENT_API_BASE_URL", server.URL)

	home := t.TempDir()
	_, _, err := executeCLI(t, home, "submit", "--type", "name", "--value", "Jane Doe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "indicator_value is required")

	stdout, _, err := executeCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No active session.")
}

func TestStatusRendersCompleteReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/incidents/inc-42", r.URL.Path)
		_, _ = fmt.Fprint(w, completeStatusJSON)
	}))
	defer server.Close()
	t.Setenv("INCIDENT_API_BASE_URL", server.URL)

	stdout, _, err := executeCLI(t, t.TempDir(), "status", "inc-42")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Incident inc-42")
	assert.Contains(t, stdout, "classification: CRITICAL")
	assert.Contains(t, stdout, "NCMEC")
	assert.Contains(t, stdout, "processing time: 92s")
	assert.Contains(t, stdout, "cases searched: 1500")
}

func TestStatusSectionFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, completeStatusJSON)
	}))
	defer server.Close()
	t.Setenv("INCIDENT_API_BASE_URL", server.URL)

	stdout, _, err := executeCLI(t, t.TempDir(), "status", "inc-42", "--section", "dispatch")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Alert Dispatch")
	assert.NotContains(t, stdout, "Risk Assessment")

	_, _, err = executeCLI(t, t.TempDir(), "status", "inc-42", "--section", "network")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown section "network"`)
}

func TestStatusJSONOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, completeStatusJSON)
	}))
	defer server.Close()
	t.Setenv("INCIDENT_API_BASE_URL", server.URL)

	stdout, _, err := executeCLI(t, t.TempDir(), "status", "inc-42", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, `"created_at": "2026-03-01T09:00:00Z"`)
	assert.Contains(t, stdout, `"score": 91`)
}

func TestStatusReturnsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"message":"Incident not found"}`)
	}))
	defer server.Close()
	t.Setenv("INCIDENT_API_BASE_URL", server.URL)

	_, _, err := executeCLI(t, t.TempDir(), "status", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incident not found")
}

func TestBriefWritesPDF(t *testing.T) {
	pdf := []byte("%PDF-1.4 brief")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/incidents/inc-42/brief", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	}))
	defer server.Close()
	t.Setenv("INCIDENT_API_BASE_URL", server.URL)

	output := filepath.Join(t.TempDir(), "brief.pdf")
	stdout, _, err := executeCLI(t, t.TempDir(), "brief", "inc-42", "--output", output)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Saved brief for inc-42")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, pdf, data)
}

func TestTrackFallsBackToPollingAndClearsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, completeStatusJSON)
	}))
	defer server.Close()

	home := t.TempDir()
	setFastWorkflow(t, server.URL, "ws://127.0.0.1:1/prod")

	stdout, _, err := executeCLI(t, home, "track", "inc-42")
	require.NoError(t, err)
	assert.Contains(t, stdout, "via status polling")
	assert.Contains(t, stdout, "Risk Assessment")
	assert.Contains(t, stdout, "Alert Dispatch")
	assert.Contains(t, stdout, "Impact Summary")

	stdout, _, err = executeCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No active session.")
}

func TestTrackFollowsPushChannel(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, completeStatusJSON)
	}))
	defer api.Close()

	upgrader := websocket.Upgrader{}
	channel := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "inc-42", r.URL.Query().Get("incident_id"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		frames := []string{
			`{"type":"context_update","payload":{"cases_found":4,"patterns":2}}`,
			`{"type":"agent_phase","payload":{"phase":"observe","status":"complete","message":"analysis finished"}}`,
		}
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer channel.Close()

	home := t.TempDir()
	setFastWorkflow(t, api.URL, "ws"+strings.TrimPrefix(channel.URL, "http"))

	stdout, _, err := executeCLI(t, home, "track", "inc-42")
	require.NoError(t, err)
	assert.Contains(t, stdout, "via live updates")
	assert.Contains(t, stdout, "cases found 4, patterns identified 2")
	assert.Contains(t, stdout, "[OBSERVE] complete analysis finished")
	assert.Contains(t, stdout, "Impact Summary")
}

func TestTrackWithoutSessionAsksForIncident(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "track")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active session")
}

func TestTrackResumesSavedStep(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, completeStatusJSON)
	}))
	defer server.Close()

	home := t.TempDir()
	setFastWorkflow(t, server.URL, "ws://127.0.0.1:1/prod")
	require.NoError(t, writeSessionFixture(home, "inc-42", "screen4", time.Now()))

	stdout, _, err := executeCLI(t, home, "track")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Analyzing incident")
	assert.NotContains(t, stdout, "Risk Assessment")
	assert.Contains(t, stdout, "Alert Dispatch")
	assert.Contains(t, stdout, "Impact Summary")
}

func TestSessionShowTreatsExpiredSessionAsAbsent(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeSessionFixture(home, "inc-42", "screen3", time.Now().Add(-2*time.Hour)))

	stdout, _, err := executeCLI(t, home, "session", "show", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"active": false}`, stdout)

	_, err = os.Stat(filepath.Join(home, ".incident", "session.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestSessionShowJSONAndClear(t *testing.T) {
	home := t.TempDir()
	saved := time.Now().Add(-10 * time.Minute).Truncate(time.Millisecond)
	require.NoError(t, writeSessionFixture(home, "inc-42", "screen3", saved))

	stdout, _, err := executeCLI(t, home, "session", "show", "--json")
	require.NoError(t, err)

	var out sessionOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.True(t, out.Active)
	assert.Equal(t, "inc-42", string(out.IncidentID))
	assert.Equal(t, "screen3", string(out.Step))
	require.NotNil(t, out.ExpiresAt)
	assert.True(t, out.ExpiresAt.Equal(saved.Add(time.Hour)))

	stdout, _, err = executeCLI(t, home, "session", "clear")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Session cleared.")

	stdout, _, err = executeCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No active session.")
}

func TestConfigInitWritesDefaultsOnce(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(home, ".incident", "config.toml"))

	data, err := os.ReadFile(filepath.Join(home, ".incident", "config.toml"))
	require.NoError(t, err)
	var file configFile
	require.NoError(t, toml.Unmarshal(data, &file))
	assert.Equal(t, "https://api.example.com/prod", file.API.BaseURL)
	assert.Equal(t, "wss://ws.example.com/prod", file.Channel.URL)
	assert.Equal(t, 5, file.Channel.MaxReconnectAttempts)
	assert.Equal(t, "1s", file.Channel.ReconnectBaseDelay)
	assert.Equal(t, "30s", file.Channel.ReconnectMaxDelay)
	assert.Equal(t, "2s", file.Poll.Interval)
	assert.Equal(t, "1h0m0s", file.Session.TTL)
	assert.Equal(t, "file", file.Session.Backend)

	_, _, err = executeCLI(t, home, "config", "init")
	require.Error(t, err)
	assert.ErrorIs(t, err, errConfigExists)

	_, _, err = executeCLI(t, home, "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigShowAppliesFileAndEnvironment(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".incident"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".incident", "config.toml"), []byte(`
[api]
base_url = "https://incidents.internal/prod"

[session.redis]
password = "hunter2"
`), 0o600))
	t.Setenv("INCIDENT_POLL_INTERVAL", "5s")

	stdout, _, err := executeCLI(t, home, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "hunter2")

	var file configFile
	require.NoError(t, toml.Unmarshal([]byte(stdout), &file))
	assert.Equal(t, "https://incidents.internal/prod", file.API.BaseURL)
	assert.Equal(t, "5s", file.Poll.Interval)
	assert.Equal(t, "********", file.Session.Redis.Password)
}

func TestUnknownSessionBackendFails(t *testing.T) {
	t.Setenv("INCIDENT_SESSION_BACKEND", "memcached")

	_, _, err := executeCLI(t, t.TempDir(), "session", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown session backend "memcached"`)
}

func setFastWorkflow(t *testing.T, apiURL, channelURL string) {
	t.Helper()
	t.Setenv("INCIDENT_API_BASE_URL", apiURL)
	t.Setenv("INCIDENT_CHANNEL_URL", channelURL)
	t.Setenv("INCIDENT_CHANNEL_HANDSHAKE_TIMEOUT", "1s")
	t.Setenv("INCIDENT_POLL_INTERVAL", "10ms")
	t.Setenv("INCIDENT_WORKFLOW_TRANSITION_DELAY", "1ms")
	t.Setenv("INCIDENT_WORKFLOW_RISK_DELAY", "1ms")
	t.Setenv("INCIDENT_WORKFLOW_SUMMARY_CLEAR_DELAY", "1ms")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeSessionFixture(home, incidentID, step string, savedAt time.Time) error {
	dir := filepath.Join(home, ".incident")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	doc := fmt.Sprintf(`{"trafficking_alert_session":{"incident_id":%q,"current_screen":%q,"timestamp":%d}}`,
		incidentID, step, savedAt.UnixMilli())

	return os.WriteFile(filepath.Join(dir, "session.json"), []byte(doc), 0o600)
}
