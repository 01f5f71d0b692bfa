package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Process exit statuses.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the store rejected a load or a query failed
	ExitCommandError = 2 // bad configuration or an unreadable input file
)

// Response codes reported with every failure.
const (
	ErrCodeGeneric      = "E001"
	ErrCodeConfig       = "E002"
	ErrCodeSchema       = "E003" // schema load or compile
	ErrCodeStore        = "E004" // store open or write
	ErrCodeNotFound     = "E005" // fixture, query or schema file missing
	ErrCodeInvalidInput = "E006" // malformed fixture, query document or --var
	ErrCodeResolve      = "E007" // cache resolution or scan
)

// CommandError is returned by a failed command. It carries the process exit
// status and the response code already reported to the user.
type CommandError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode maps a command result to a process exit status. Errors that are
// not a CommandError exit with ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Status
	}
	return ExitFailure
}

// Response is the JSON envelope written for every command.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// TextPayload is a command result with its own text rendering.
type TextPayload interface {
	RenderText(w io.Writer) error
}

// Printer writes command results to Out and diagnostics to Diag.
//
// Diagnostics never go to Out, so JSON output stays parseable with
// --verbose. A nil Diag drops them.
type Printer struct {
	Format  string
	Out     io.Writer
	Diag    io.Writer
	Verbose bool
}

// Print writes a successful result.
func (p *Printer) Print(payload any) error {
	if p.Format == "json" {
		return json.NewEncoder(p.Out).Encode(Response{Status: "ok", Data: payload})
	}
	if tp, ok := payload.(TextPayload); ok {
		return tp.RenderText(p.Out)
	}
	_, err := fmt.Fprintln(p.Out, payload)
	return err
}

// Fail reports a failure and returns it as a *CommandError.
func (p *Printer) Fail(status int, code, message string, err error) error {
	if werr := p.printError(code, message, err); werr != nil {
		return werr
	}
	return &CommandError{Status: status, Code: code, Message: message, Err: err}
}

func (p *Printer) printError(code, message string, cause error) error {
	if p.Format == "json" {
		resp := Response{Status: "error", Error: &ResponseError{Code: code, Message: message}}
		if cause != nil {
			resp.Error.Cause = cause.Error()
		}
		return json.NewEncoder(p.Out).Encode(resp)
	}

	if _, err := fmt.Fprintf(p.Out, "error %s: %s\n", code, message); err != nil {
		return err
	}
	if p.Verbose && cause != nil {
		_, err := fmt.Fprintf(p.Out, "  cause: %v\n", cause)
		return err
	}
	return nil
}

// Notef writes a diagnostic line when verbose.
func (p *Printer) Notef(format string, args ...any) {
	if !p.Verbose || p.Diag == nil {
		return
	}
	fmt.Fprintf(p.Diag, format+"\n", args...)
}

// PrintMetrics writes every counter and gauge of g as diagnostic lines of
// the form "metric name{label="value"} 1" when verbose.
func (p *Printer) PrintMetrics(g prometheus.Gatherer) error {
	if !p.Verbose || p.Diag == nil {
		return nil
	}
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	for _, family := range families {
		for _, m := range family.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			default:
				continue
			}

			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			sort.Strings(labels)

			name := family.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(p.Diag, "metric %s %s\n", name, strconv.FormatFloat(value, 'g', -1, 64))
		}
	}
	return nil
}
