package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"capsulectl/internal/jobs"
	"capsulectl/pkg/api"
)

// resetViper clears viper config between tests for isolation
func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("CODEOCEAN")
	viper.AutomaticEnv()
}

func writeTestSweep(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write sweep file: %v", err)
	}
	return path
}

// fakePlatform serves the capsule and computation endpoints. failParams
// lists parameter values whose submission is rejected.
func fakePlatform(t *testing.T, failParams ...string) (*httptest.Server, *[]api.RunCapsuleRequest) {
	t.Helper()
	var received []api.RunCapsuleRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v1/capsules/"):
			json.NewEncoder(w).Encode(api.Capsule{ID: "cap-123", Name: "npe-training"})

		case r.URL.Path == "/api/v1/computations" && r.Method == http.MethodPost:
			var req api.RunCapsuleRequest
			json.NewDecoder(r.Body).Decode(&req)
			received = append(received, req)

			for _, p := range req.NamedParameters {
				for _, bad := range failParams {
					if p.Value == bad {
						w.WriteHeader(http.StatusBadRequest)
						json.NewEncoder(w).Encode(api.ErrorResponse{Message: "rejected parameter"})
						return
					}
				}
			}

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(api.Computation{
				ID:    "comp-" + req.NamedParameters[0].Value,
				State: api.StateInitializing,
			})

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	return server, &received
}

func TestSubmitCommand_Success(t *testing.T) {
	resetViper()

	server, received := fakePlatform(t)
	defer server.Close()

	viper.Set("domain", server.URL)
	viper.Set("token", "test-token")

	sweepPath := writeTestSweep(t, `{
		"capsule_id": "cap-123",
		"parameters": [
			{"batch_size": 256},
			{"batch_size": 128}
		]
	}`)
	jobsFile := filepath.Join(t.TempDir(), "jobs.json")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"submit", "--sweep", sweepPath, "--jobs-file", jobsFile})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*received) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(*received))
	}

	ledger, err := jobs.Load(jobsFile)
	if err != nil {
		t.Fatalf("expected jobs file to be written: %v", err)
	}
	if len(ledger.Jobs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(ledger.Jobs))
	}
	if ledger.Jobs[0].Key != "run_0_batch_size=256" {
		t.Errorf("unexpected job key: %s", ledger.Jobs[0].Key)
	}
	if ledger.BatchID == "" {
		t.Error("expected a batch ID in the jobs file")
	}

	output := stdout.String()
	if !strings.Contains(output, "Submitted 2/2") {
		t.Errorf("expected submission summary, got: %s", output)
	}
	if !strings.Contains(output, "npe-training") {
		t.Errorf("expected capsule name in output, got: %s", output)
	}
}

func TestSubmitCommand_PartialFailureContinues(t *testing.T) {
	resetViper()

	// The 256 combination is rejected; the others must still be recorded.
	server, received := fakePlatform(t, "256")
	defer server.Close()

	viper.Set("domain", server.URL)
	viper.Set("token", "test-token")

	sweepPath := writeTestSweep(t, `{
		"capsule_id": "cap-123",
		"parameters": [
			{"batch_size": 64},
			{"batch_size": 256},
			{"batch_size": 128}
		]
	}`)
	jobsFile := filepath.Join(t.TempDir(), "jobs.json")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"submit", "--sweep", sweepPath, "--jobs-file", jobsFile})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*received) != 3 {
		t.Fatalf("expected all 3 submissions attempted, got %d", len(*received))
	}

	ledger, err := jobs.Load(jobsFile)
	if err != nil {
		t.Fatalf("expected jobs file despite one failure: %v", err)
	}
	if len(ledger.Jobs) != 2 {
		t.Fatalf("expected 2 recorded jobs, got %d", len(ledger.Jobs))
	}
	for _, rec := range ledger.Jobs {
		if rec.Parameters["batch_size"] == "256" {
			t.Error("failed combination must not be recorded")
		}
	}

	output := stdout.String()
	if !strings.Contains(output, "submission failed (400)") {
		t.Errorf("expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "Submitted 2/3") {
		t.Errorf("expected summary with partial count, got: %s", output)
	}
}

func TestSubmitCommand_AppendsAcrossRuns(t *testing.T) {
	resetViper()

	server, _ := fakePlatform(t)
	defer server.Close()

	viper.Set("domain", server.URL)
	viper.Set("token", "test-token")

	jobsFile := filepath.Join(t.TempDir(), "jobs.json")

	first := writeTestSweep(t, `{"capsule_id": "cap-123", "parameters": [{"batch_size": 256}]}`)
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"submit", "--sweep", first, "--jobs-file", jobsFile})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := writeTestSweep(t, `{"capsule_id": "cap-123", "parameters": [{"batch_size": 128}]}`)
	rootCmd.SetArgs([]string{"submit", "--sweep", second, "--jobs-file", jobsFile})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ledger, err := jobs.Load(jobsFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.Jobs) != 2 {
		t.Fatalf("expected records from both runs, got %d", len(ledger.Jobs))
	}
}

func TestSubmitCommand_MissingToken(t *testing.T) {
	resetViper()
	viper.Set("domain", "https://codeocean.example.org")
	viper.Set("token", "")

	sweepPath := writeTestSweep(t, `{"capsule_id": "cap-123", "parameters": [{"batch_size": 256}]}`)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"submit", "--sweep", sweepPath})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "API token not found") {
		t.Errorf("expected token error message, got: %s", stdout.String())
	}
}

func TestSubmitCommand_InvalidSweep(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for an invalid sweep")
	}))
	defer server.Close()

	viper.Set("domain", server.URL)
	viper.Set("token", "test-token")

	sweepPath := writeTestSweep(t, `{"parameters": [{"batch_size": 256}]}`)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"submit", "--sweep", sweepPath})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "invalid sweep definition") {
		t.Errorf("expected validation error, got: %s", stdout.String())
	}
}

func TestSubmitCommand_CapsuleUnreachable(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	viper.Set("domain", server.URL)
	viper.Set("token", "test-token")

	sweepPath := writeTestSweep(t, `{"capsule_id": "cap-missing", "parameters": [{"batch_size": 256}]}`)
	jobsFile := filepath.Join(t.TempDir(), "jobs.json")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"submit", "--sweep", sweepPath, "--jobs-file", jobsFile})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "not reachable") {
		t.Errorf("expected capsule error, got: %s", stdout.String())
	}
	if _, err := os.Stat(jobsFile); err == nil {
		t.Error("jobs file must not be written when the capsule check fails")
	}
}

func TestSubmitCommand_SendsOutputPrefix(t *testing.T) {
	resetViper()

	server, received := fakePlatform(t)
	defer server.Close()

	viper.Set("domain", server.URL)
	viper.Set("token", "test-token")

	sweepPath := writeTestSweep(t, `{"capsule_id": "cap-123", "parameters": [{"batch_size": 256}]}`)
	jobsFile := filepath.Join(t.TempDir(), "jobs.json")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"submit", "--sweep", sweepPath, "--jobs-file", jobsFile, "--output-prefix", "/results/npe"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := (*received)[0]
	last := req.NamedParameters[len(req.NamedParameters)-1]
	if last.ParamName != "base_output_dir" {
		t.Fatalf("expected base_output_dir param, got %s", last.ParamName)
	}
	if last.Value != "/results/npe/run_0_batch_size=256" {
		t.Errorf("unexpected output dir: %s", last.Value)
	}
}
