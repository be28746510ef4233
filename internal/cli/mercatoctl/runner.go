// Package mercatoctl implements the operator CLI. Every command is a thin
// HTTP call against a running mercato-api; nothing here touches the database
// or the model directly.
package mercatoctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("mercatoctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "mercato API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	httpClient := defaults.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: *timeout}
	}

	c := &ctl{
		baseURL: strings.TrimRight(*baseURL, "/"),
		apiKey:  strings.TrimSpace(*apiKey),
		http:    httpClient,
		stdout:  stdout,
		stderr:  stderr,
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]
	switch command {
	case "health":
		return c.health(ctx)
	case "schema":
		return c.schema(ctx)
	case "clubs":
		return c.clubs(ctx)
	case "players":
		return c.players(ctx, rest)
	case "transfers":
		return c.transfers(ctx, rest)
	case "transfer":
		return c.transfer(ctx, rest)
	case "ask":
		return c.ask(ctx, rest)
	case "console":
		return c.console(ctx)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
}

type ctl struct {
	baseURL string
	apiKey  string
	http    *http.Client
	stdout  io.Writer
	stderr  io.Writer
}

func (c *ctl) health(ctx context.Context) int {
	code, body, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return c.requestFailed(err)
	}
	if code >= 400 {
		return c.httpError(code, body)
	}
	if pretty, ok := prettyJSON(body); ok {
		_, _ = fmt.Fprintln(c.stdout, pretty)
		return 0
	}
	_, _ = fmt.Fprintln(c.stdout, strings.TrimSpace(string(body)))
	return 0
}

func (c *ctl) schema(ctx context.Context) int {
	code, body, err := c.do(ctx, http.MethodGet, "/v1/schema", nil)
	if err != nil {
		return c.requestFailed(err)
	}
	if code >= 400 {
		return c.httpError(code, body)
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.requestFailed(err)
	}
	_, _ = fmt.Fprint(c.stdout, payload.Text)
	return 0
}

// do sends one request and hands back status and body. Callers decide what a
// non-2xx status means; transport errors are the only error return.
func (c *ctl) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

func (c *ctl) requestFailed(err error) int {
	_, _ = fmt.Fprintf(c.stderr, "request failed: %v\n", err)
	return 1
}

func (c *ctl) httpError(code int, body []byte) int {
	var envelope struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.ErrorCode != "" {
		_, _ = fmt.Fprintf(c.stderr, "http %d %s: %s\n", code, envelope.ErrorCode, envelope.Message)
		return 1
	}
	_, _ = fmt.Fprintf(c.stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
	return 1
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: mercatoctl [flags] <command> [command flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                                 check the API server")
	_, _ = fmt.Fprintln(w, "  schema                                 print the table summary the model sees")
	_, _ = fmt.Fprintln(w, "  clubs                                  list clubs")
	_, _ = fmt.Fprintln(w, "  players [--club ID]                    list players")
	_, _ = fmt.Fprintln(w, "  transfers [--limit N]                  list recent transfers")
	_, _ = fmt.Fprintln(w, "  transfer --player ID --to ID --fee N   move a player between clubs")
	_, _ = fmt.Fprintln(w, "  ask \"<question>\"                       ask one question about the market")
	_, _ = fmt.Fprintln(w, "  console                                interactive question session")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
