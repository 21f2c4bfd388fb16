package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
	httpserver "github.com/fyrsmithlabs/intaketriage/internal/http"
	"github.com/fyrsmithlabs/intaketriage/internal/logging"
	"github.com/fyrsmithlabs/intaketriage/internal/scoring"
	"github.com/fyrsmithlabs/intaketriage/internal/triage"
)

const transcript = `I was rear-ended at a red light last Friday. The police came and wrote a report.
I went to the ER that night and my neck pain is about six out of 10.`

func TestRootCommands(t *testing.T) {
	want := []string{"score", "features", "health", "weights", "version"}
	for _, name := range want {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s command not found in rootCmd", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	defer resetFlags()

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	assert.Contains(t, out, "Scoring:    v3.2.0")
	assert.Contains(t, out, "Rules:      admission-rules-v1")
}

func TestReadTranscript(t *testing.T) {
	got, err := readTranscript(nil, strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	got, err = readTranscript([]string{"-"}, strings.NewReader("dash"))
	require.NoError(t, err)
	assert.Equal(t, "dash", got)

	path := filepath.Join(t.TempDir(), "call.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o600))
	got, err = readTranscript([]string{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	_, err = readTranscript([]string{filepath.Join(t.TempDir(), "missing.txt")}, nil)
	assert.Error(t, err)
}

func TestReadIntake(t *testing.T) {
	d, err := readIntake("")
	require.NoError(t, err)
	assert.Empty(t, d.ClientName)

	path := filepath.Join(t.TempDir(), "draft.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_name":"Jane Doe","pain_level":7}`), 0o600))
	d, err = readIntake(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", d.ClientName)
	require.NotNil(t, d.PainLevel)
	assert.Equal(t, 7, *d.PainLevel)

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err = readIntake(path)
	assert.Error(t, err)
}

func TestParseNowFlag(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", want: "0001-01-01"},
		{name: "iso date", input: "2024-04-18", want: "2024-04-18"},
		{name: "timestamp", input: "2024-04-18T10:00:00Z", want: "2024-04-18"},
		{name: "garbage", input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNowFlag(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, scoring.Result{
		ID:             "case-1",
		Score:          35,
		Decision:       scoring.Review,
		Nudged:         true,
		Reasons:        []string{"+ Rear-end collision"},
		Clarifications: []string{"Confirm incident year"},
		Trace:          scoring.Trace{CaseType: features.MVARearEnd},
	})

	out := buf.String()
	assert.Contains(t, out, "Case:      case-1")
	assert.Contains(t, out, "Decision:  REVIEW (nudged)")
	assert.Contains(t, out, "  + Rear-end collision")
	assert.Contains(t, out, "  - Confirm incident year")
}

func TestRunWeights(t *testing.T) {
	defer resetFlags()

	var buf bytes.Buffer
	weightsCmd.SetOut(&buf)
	weightsCaseType = string(features.DogBite)

	require.NoError(t, runWeights(weightsCmd, nil))
	out := buf.String()
	assert.Contains(t, out, "# version: builtin-v1")
	assert.Contains(t, out, "witness_present = 4")

	weightsCaseType = "BOAT"
	assert.Error(t, runWeights(weightsCmd, nil))
}

func TestRunScore_Local(t *testing.T) {
	defer resetFlags()
	t.Setenv("HOME", t.TempDir())

	noLLM = true
	nowFlag = "2024-04-18"
	caseID = "intake-9"

	var buf bytes.Buffer
	scoreCmd.SetOut(&buf)
	scoreCmd.SetIn(strings.NewReader(transcript))

	require.NoError(t, runScore(scoreCmd, nil))
	out := buf.String()
	assert.Contains(t, out, "Case:      intake-9")
	assert.Contains(t, out, "Type:      MVA_REAR_END")
	assert.Contains(t, out, "+ Clear liability: rear-ended")
}

func TestRunScore_LocalValidation(t *testing.T) {
	defer resetFlags()
	t.Setenv("HOME", t.TempDir())

	noLLM = true
	validateIntake = true
	scoreCmd.SetIn(strings.NewReader(transcript))

	err := runScore(scoreCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_name (required)")
}

func TestRunScore_Remote(t *testing.T) {
	defer resetFlags()
	ts := newTestServer(t)

	serverURL = ts.URL
	jsonOutput = true
	includeFeatures = true

	var buf bytes.Buffer
	scoreCmd.SetOut(&buf)
	scoreCmd.SetIn(strings.NewReader(transcript))

	require.NoError(t, runScore(scoreCmd, nil))

	var result scoring.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, features.MVARearEnd, result.Trace.CaseType)
	require.NotNil(t, result.Features)
	assert.True(t, result.Features.Booleans.RearEnded)
}

func TestRunScore_RemoteValidationError(t *testing.T) {
	defer resetFlags()
	ts := newTestServer(t)

	serverURL = ts.URL
	validateIntake = true
	scoreCmd.SetIn(strings.NewReader(transcript))

	err := runScore(scoreCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestRunFeatures_Remote(t *testing.T) {
	defer resetFlags()
	ts := newTestServer(t)

	serverURL = ts.URL
	var buf bytes.Buffer
	featuresCmd.SetOut(&buf)
	featuresCmd.SetIn(strings.NewReader(transcript))

	require.NoError(t, runFeatures(featuresCmd, nil))

	var f features.CaseFeatures
	require.NoError(t, json.Unmarshal(buf.Bytes(), &f))
	assert.True(t, f.Booleans.PoliceReportPresent)
}

func TestRunHealth(t *testing.T) {
	defer resetFlags()

	assert.Error(t, runHealth(healthCmd, nil), "server flag required")

	ts := newTestServer(t)
	serverURL = ts.URL
	var buf bytes.Buffer
	healthCmd.SetOut(&buf)

	require.NoError(t, runHealth(healthCmd, nil))
	assert.Contains(t, buf.String(), "Server Status: ok")
	assert.Contains(t, buf.String(), "LLM: false")
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	engine := triage.NewEngine(nil, nil)
	srv, err := httpserver.NewServer(engine, logging.NewNop(), &httpserver.Config{Version: "test"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func resetFlags() {
	serverURL = ""
	configPath = ""
	noLLM = false
	intakeFile = ""
	incidentDate = ""
	nowFlag = ""
	caseID = ""
	includeFeatures = false
	validateIntake = false
	jsonOutput = false
	weightsFile = ""
	weightsCaseType = string(features.Other)
	for _, c := range []*cobra.Command{scoreCmd, featuresCmd, healthCmd, weightsCmd, versionCmd} {
		c.SetOut(nil)
		c.SetIn(nil)
	}
}
