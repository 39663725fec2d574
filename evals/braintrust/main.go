package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	braintrust "github.com/braintrustdata/braintrust-sdk-go"
	"github.com/braintrustdata/braintrust-sdk-go/eval"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	statusEnhanced   = "ENHANCED"
	statusSuggestion = "SUGGESTION"
	statusRejected   = "REJECTED"
	statusConflict   = "CONFLICT"
	stageCompleted   = "COMPLETED"
	stageFailed      = "FAILED"
)

type evalInput struct {
	Name      string `json:"name"`
	Operation string `json:"operation"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

type evalOutput struct {
	NoteID         string         `json:"note_id,omitempty"`
	Status         string         `json:"status,omitempty"`
	Text           string         `json:"text,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Rule           string         `json:"rule,omitempty"`
	NoteContent    string         `json:"note_content,omitempty"`
	MustContain    []string       `json:"must_contain,omitempty"`
	MaxLengthRatio float64        `json:"max_length_ratio,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type rawCase struct {
	Input    evalInput  `json:"input"`
	Expected evalOutput `json:"expected"`
}

type config struct {
	APIURL         string
	CasesPath      string
	Project        string
	Experiment     string
	UserID         string
	PollInterval   time.Duration
	PollTimeout    time.Duration
	RequestTimeout time.Duration
	Parallelism    int
}

type evalRunner struct {
	cfg    config
	client *http.Client
}

type noteResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type outcome struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
	Rule   string `json:"rule"`
}

type enhanceResponse struct {
	WorkflowID string        `json:"workflow_id"`
	Status     string        `json:"status"`
	Outcome    *outcome      `json:"outcome"`
	Note       *noteResponse `json:"note"`
}

type statusResponse struct {
	Stage   string `json:"stage"`
	Outcome string `json:"outcome"`
}

type enhancementRecord struct {
	Outcome string   `json:"outcome"`
	Detail  string   `json:"detail"`
	Rules   []string `json:"rules"`
}

var leadInRe = regexp.MustCompile(`(?i)^(?:sure|certainly|here(?:'s| is)|the (?:improved|corrected|enhanced) )`)

func main() {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		fail(err)
	}

	if strings.TrimSpace(os.Getenv("BRAINTRUST_API_KEY")) == "" {
		fail(errors.New("BRAINTRUST_API_KEY is required"))
	}

	cases, err := loadCases(cfg.CasesPath)
	if err != nil {
		fail(err)
	}

	runner := &evalRunner{
		cfg:    cfg,
		client: &http.Client{},
	}

	if err := runner.healthCheck(ctx); err != nil {
		fail(err)
	}

	tp := sdktrace.NewTracerProvider()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	bt, err := braintrust.New(
		tp,
		braintrust.WithProject(cfg.Project),
		braintrust.WithBlockingLogin(true),
	)
	if err != nil {
		fail(fmt.Errorf("failed to initialize Braintrust: %w", err))
	}

	evaluator := braintrust.NewEvaluator[evalInput, evalOutput](bt)

	result, err := evaluator.Run(ctx, eval.Opts[evalInput, evalOutput]{
		Experiment: cfg.Experiment,
		Dataset:    eval.NewDataset(cases),
		Task:       eval.T(runner.runCase),
		Scorers: []eval.Scorer[evalInput, evalOutput]{
			eval.NewScorer("status", scoreStatus),
			eval.NewScorer("reason", scoreReason),
			eval.NewScorer("clean_rewrite", scoreCleanRewrite),
			eval.NewScorer("length_ratio", scoreLengthRatio),
			eval.NewScorer("keywords", scoreKeywords),
			eval.NewScorer("content_preserved", scoreContentPreserved),
		},
		Tags: []string{"note-enhancement", "classification", "workflow-api"},
		Metadata: map[string]any{
			"service":          "note-enhancer",
			"api_url":          cfg.APIURL,
			"poll_timeout_sec": int(cfg.PollTimeout.Seconds()),
		},
		Parallelism: cfg.Parallelism,
	})
	if err != nil {
		fail(fmt.Errorf("eval run failed: %w", err))
	}

	if runErr := result.Error(); runErr != nil {
		fail(fmt.Errorf("eval completed with errors: %w", runErr))
	}

	if link, err := result.Permalink(); err == nil && link != "" {
		fmt.Println("Braintrust report:", link)
	}

	fmt.Println(result.String())
}

func loadConfig() (config, error) {
	cfg := config{
		APIURL:         getenv("EVAL_API_URL", "http://localhost:8080"),
		CasesPath:      getenv("EVAL_CASES_PATH", "cases.json"),
		Project:        getenv("BRAINTRUST_PROJECT", "note-enhancer"),
		Experiment:     getenv("EVAL_EXPERIMENT", "note-enhancement-outcome-eval"),
		UserID:         getenv("EVAL_USER_ID", "braintrust-eval"),
		PollInterval:   time.Duration(getenvInt("EVAL_POLL_INTERVAL_SEC", 2)) * time.Second,
		PollTimeout:    time.Duration(getenvInt("EVAL_POLL_TIMEOUT_SEC", 180)) * time.Second,
		RequestTimeout: time.Duration(getenvInt("EVAL_REQUEST_TIMEOUT_SEC", 60)) * time.Second,
		Parallelism:    getenvInt("EVAL_PARALLELISM", 1),
	}

	if cfg.PollInterval <= 0 {
		return config{}, errors.New("EVAL_POLL_INTERVAL_SEC must be > 0")
	}
	if cfg.PollTimeout <= 0 {
		return config{}, errors.New("EVAL_POLL_TIMEOUT_SEC must be > 0")
	}
	if cfg.RequestTimeout <= 0 {
		return config{}, errors.New("EVAL_REQUEST_TIMEOUT_SEC must be > 0")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}

	return cfg, nil
}

func loadCases(path string) ([]eval.Case[evalInput, evalOutput], error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases file %s: %w", resolved, err)
	}

	var raw []rawCase
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cases file %s: %w", resolved, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("cases file is empty: %s", resolved)
	}

	cases := make([]eval.Case[evalInput, evalOutput], 0, len(raw))
	for _, row := range raw {
		cases = append(cases, eval.Case[evalInput, evalOutput]{
			Input:    row.Input,
			Expected: row.Expected,
			Metadata: map[string]any{"name": row.Input.Name, "operation": row.Input.Operation},
		})
	}
	return cases, nil
}

func (r *evalRunner) runCase(ctx context.Context, input evalInput) (evalOutput, error) {
	title := input.Title
	if title == "" {
		title = input.Name
	}

	var note noteResponse
	if err := r.doJSON(ctx, http.MethodPost, "/v1/notes", map[string]string{"title": title, "content": input.Content}, &note); err != nil {
		return evalOutput{}, fmt.Errorf("create note: %w", err)
	}

	var started enhanceResponse
	status, err := r.doJSONStatus(ctx, http.MethodPost, "/v1/notes/"+note.ID+"/enhance", map[string]string{"operation": input.Operation}, &started, http.StatusConflict)
	if err != nil {
		return evalOutput{}, fmt.Errorf("enhance note: %w", err)
	}

	if status != http.StatusAccepted && started.Outcome != nil {
		out := evalOutput{
			NoteID: note.ID,
			Status: started.Status,
			Text:   started.Outcome.Text,
			Reason: started.Outcome.Reason,
			Rule:   started.Outcome.Rule,
		}
		return r.withNoteContent(ctx, out)
	}

	if err := r.waitForCompletion(ctx, note.ID); err != nil {
		return evalOutput{}, err
	}
	return r.outcomeFromLog(ctx, note.ID)
}

func (r *evalRunner) waitForCompletion(ctx context.Context, noteID string) error {
	deadline := time.Now().Add(r.cfg.PollTimeout)
	for {
		var st statusResponse
		if err := r.doJSON(ctx, http.MethodGet, "/v1/notes/"+noteID+"/enhance/status", nil, &st); err != nil {
			return err
		}
		switch strings.ToUpper(st.Stage) {
		case stageCompleted:
			return nil
		case stageFailed:
			return fmt.Errorf("enhancement failed for note %s", noteID)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for note %s", noteID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.PollInterval):
		}
	}
}

// outcomeFromLog rebuilds the outcome from the newest enhancement record when
// the API answered before the workflow finished.
func (r *evalRunner) outcomeFromLog(ctx context.Context, noteID string) (evalOutput, error) {
	var log struct {
		Items []enhancementRecord `json:"items"`
	}
	if err := r.doJSON(ctx, http.MethodGet, "/v1/notes/"+noteID+"/enhancements", nil, &log); err != nil {
		return evalOutput{}, err
	}
	if len(log.Items) == 0 {
		return evalOutput{}, fmt.Errorf("no enhancement recorded for note %s", noteID)
	}

	latest := log.Items[0]
	out := evalOutput{NoteID: noteID, Status: strings.ToUpper(latest.Outcome)}
	switch out.Status {
	case statusRejected:
		out.Reason = latest.Detail
	case statusSuggestion:
		out.Text = latest.Detail
		if len(latest.Rules) > 0 {
			out.Rule = latest.Rules[0]
		}
	}
	out, err := r.withNoteContent(ctx, out)
	if err != nil {
		return evalOutput{}, err
	}
	if out.Status == statusEnhanced {
		out.Text = out.NoteContent
	}
	return out, nil
}

func (r *evalRunner) withNoteContent(ctx context.Context, out evalOutput) (evalOutput, error) {
	var note noteResponse
	if err := r.doJSON(ctx, http.MethodGet, "/v1/notes/"+out.NoteID, nil, &note); err != nil {
		return evalOutput{}, err
	}
	out.NoteContent = note.Content
	return out, nil
}

func (r *evalRunner) healthCheck(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := r.doJSON(ctx, http.MethodGet, "/healthz", nil, &resp); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if strings.ToLower(resp.Status) != "ok" {
		return fmt.Errorf("health check returned non-ok status: %s", resp.Status)
	}
	return nil
}

func (r *evalRunner) doJSON(ctx context.Context, method, path string, in any, out any) error {
	_, err := r.doJSONStatus(ctx, method, path, in, out)
	return err
}

func (r *evalRunner) doJSONStatus(ctx context.Context, method, path string, in any, out any, accept ...int) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, strings.TrimRight(r.cfg.APIURL, "/")+path, body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", r.cfg.UserID)

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, status := range accept {
		if resp.StatusCode == status {
			ok = true
		}
	}
	if !ok {
		return resp.StatusCode, fmt.Errorf("request failed: method=%s path=%s status=%d body=%s", method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode failed: %w (payload=%s)", err, string(payload))
		}
	}
	return resp.StatusCode, nil
}

func scoreStatus(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	expected := strings.ToUpper(strings.TrimSpace(tr.Expected.Status))
	if expected == "" {
		expected = statusEnhanced
	}
	actual := strings.ToUpper(strings.TrimSpace(tr.Output.Status))
	if actual == expected {
		return eval.S(1), nil
	}
	return eval.S(0), nil
}

func scoreReason(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	expected := normalizeString(tr.Expected.Reason)
	if expected == "" {
		return eval.S(1), nil
	}
	if normalizeString(tr.Output.Reason) == expected {
		return eval.S(1), nil
	}
	return eval.S(0), nil
}

// scoreCleanRewrite checks that an applied rewrite carries no chatter or
// wrapping quotes.
func scoreCleanRewrite(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	if !strings.EqualFold(tr.Output.Status, statusEnhanced) {
		return eval.S(1), nil
	}
	text := strings.TrimSpace(tr.Output.Text)
	if text == "" || leadInRe.MatchString(text) {
		return eval.S(0), nil
	}
	if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		return eval.S(0), nil
	}
	return eval.S(1), nil
}

func scoreLengthRatio(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	if !strings.EqualFold(tr.Output.Status, statusEnhanced) {
		return eval.S(1), nil
	}
	limit := tr.Expected.MaxLengthRatio
	if limit <= 0 {
		limit = 3
	}
	original := utf8.RuneCountInString(strings.TrimSpace(tr.Input.Content))
	if original == 0 {
		return eval.S(0), nil
	}
	ratio := float64(utf8.RuneCountInString(tr.Output.Text)) / float64(original)
	if ratio <= limit {
		return eval.S(1), nil
	}
	return eval.S(0), nil
}

func scoreKeywords(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	words := tr.Expected.MustContain
	if len(words) == 0 {
		return eval.S(1), nil
	}
	text := normalizeString(tr.Output.Text)
	matched := 0
	for _, w := range words {
		if strings.Contains(text, normalizeString(w)) {
			matched++
		}
	}
	return eval.S(float64(matched) / float64(len(words))), nil
}

// scoreContentPreserved checks that only an applied enhancement changes the
// note.
func scoreContentPreserved(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	switch strings.ToUpper(tr.Output.Status) {
	case statusEnhanced:
		if tr.Output.NoteContent == tr.Output.Text {
			return eval.S(1), nil
		}
	case statusConflict:
		return eval.S(1), nil
	default:
		if tr.Output.NoteContent == tr.Input.Content {
			return eval.S(1), nil
		}
	}
	return eval.S(0), nil
}

func normalizeString(v any) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprintf("%v", v)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func resolvePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is empty")
	}
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("path not found: %s", path)
	}

	candidates := []string{
		path,
		filepath.Join("..", "..", path),
	}

	for _, c := range candidates {
		absPath, err := filepath.Abs(c)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return absPath, nil
		}
	}

	return "", fmt.Errorf("path not found: %s", path)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out int
	if _, err := fmt.Sscanf(v, "%d", &out); err != nil {
		return fallback
	}
	return out
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
