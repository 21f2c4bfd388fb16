package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/intaketriage/internal/app"
	"github.com/fyrsmithlabs/intaketriage/internal/config"
	"github.com/fyrsmithlabs/intaketriage/internal/dates"
	"github.com/fyrsmithlabs/intaketriage/internal/features"
	httpserver "github.com/fyrsmithlabs/intaketriage/internal/http"
	"github.com/fyrsmithlabs/intaketriage/internal/intake"
	"github.com/fyrsmithlabs/intaketriage/internal/scoring"
	"github.com/fyrsmithlabs/intaketriage/internal/triage"
)

var (
	intakeFile      string
	incidentDate    string
	nowFlag         string
	caseID          string
	includeFeatures bool
	validateIntake  bool
	jsonOutput      bool
)

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Score a transcript file or stdin",
	Long: `Score an intake transcript and print the decision, reasons and
clarifications.

Examples:
  # Score a transcript file
  triage score call.txt

  # Score stdin with intake form data, JSON output
  cat call.txt | triage score - --intake draft.json --json

  # Score against a running server
  triage score call.txt --server http://localhost:8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

var featuresCmd = &cobra.Command{
	Use:   "features [file]",
	Short: "Print the merged case features for a transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFeatures,
}

func init() {
	for _, c := range []*cobra.Command{scoreCmd, featuresCmd} {
		c.Flags().StringVar(&incidentDate, "incident-date", "", "incident date hint (ISO or relative phrase)")
		c.Flags().StringVar(&nowFlag, "now", "", "reference date, defaults to today")
	}
	scoreCmd.Flags().StringVar(&intakeFile, "intake", "", "JSON file with intake form fields")
	scoreCmd.Flags().StringVar(&caseID, "case-id", "", "case identifier echoed in the result")
	scoreCmd.Flags().BoolVar(&includeFeatures, "features", false, "include merged features in the result")
	scoreCmd.Flags().BoolVar(&validateIntake, "validate", false, "require a submittable intake before scoring")
	scoreCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the full result as JSON")
}

// readTranscript reads the transcript from a file, or from stdin when the
// argument is missing or "-".
func readTranscript(args []string, stdin io.Reader) (string, error) {
	var content []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	return string(content), nil
}

func readIntake(path string) (intake.Draft, error) {
	var d intake.Draft
	if path == "" {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("failed to read intake %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("failed to parse intake %s: %w", path, err)
	}
	return d, nil
}

func parseNowFlag(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, ok := dates.ParseMaybeISO(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid --now %q", s)
	}
	return t, nil
}

// localEngine builds an in-process engine with a silent logger.
func localEngine(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return app.Build(ctx, cfg, app.Options{Version: version, Quiet: true, DisableLLM: noLLM})
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	transcript, err := readTranscript(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	draft, err := readIntake(intakeFile)
	if err != nil {
		return err
	}

	var result scoring.Result
	if serverURL != "" {
		result, err = remoteScore(httpserver.ScoreRequest{
			CaseID:          caseID,
			Intake:          draft,
			Transcript:      transcript,
			IncidentDate:    incidentDate,
			Now:             nowFlag,
			IncludeFeatures: includeFeatures,
		}, validateIntake)
		if err != nil {
			return err
		}
	} else {
		now, err := parseNowFlag(nowFlag)
		if err != nil {
			return err
		}
		if validateIntake {
			if err := intake.ValidateForSubmit(intake.Normalize(draft)); err != nil {
				return err
			}
		}
		a, err := localEngine(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		result = a.Engine.ScoreCase(ctx, triage.ScoreRequest{
			CaseID:          caseID,
			Intake:          draft,
			Transcript:      transcript,
			IncidentDate:    incidentDate,
			Now:             now,
			IncludeFeatures: includeFeatures,
		})
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func runFeatures(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	transcript, err := readTranscript(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var f features.CaseFeatures
	if serverURL != "" {
		err = postJSON("/api/v1/features", httpserver.FeaturesRequest{
			Transcript:   transcript,
			IncidentDate: incidentDate,
			Now:          nowFlag,
		}, &f)
		if err != nil {
			return err
		}
	} else {
		now, err := parseNowFlag(nowFlag)
		if err != nil {
			return err
		}
		a, err := localEngine(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		f = a.Engine.BuildFeatures(ctx, triage.BuildRequest{
			Transcript:   transcript,
			IncidentDate: incidentDate,
			Now:          now,
		})
	}
	return writeJSON(cmd.OutOrStdout(), f)
}

func remoteScore(req httpserver.ScoreRequest, validate bool) (scoring.Result, error) {
	var result scoring.Result
	path := "/api/v1/score"
	if validate {
		path += "?validate=true"
	}
	err := postJSON(path, req, &result)
	return result, err
}

// postJSON sends body to the server and decodes a 200 response into out.
func postJSON(path string, body, out interface{}) error {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(serverURL, "/") + path
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 90 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, r scoring.Result) {
	decision := string(r.Decision)
	if r.Nudged {
		decision += " (nudged)"
	}
	fmt.Fprintf(w, "Case:      %s\n", r.ID)
	fmt.Fprintf(w, "Type:      %s\n", r.Trace.CaseType)
	fmt.Fprintf(w, "Score:     %d\n", r.Score)
	fmt.Fprintf(w, "Decision:  %s\n", decision)
	if len(r.Reasons) > 0 {
		fmt.Fprintln(w, "\nReasons:")
		for _, reason := range r.Reasons {
			fmt.Fprintf(w, "  %s\n", reason)
		}
	}
	if len(r.Clarifications) > 0 {
		fmt.Fprintln(w, "\nNeeds clarification:")
		for _, c := range r.Clarifications {
			fmt.Fprintf(w, "  - %s\n", c)
		}
	}
}
