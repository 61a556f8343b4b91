// Package yfbridge wraps the yfinance python bridge behind a narrow port.
// The JSON contract is one object on stdin ({action, params...}) and one
// {ok, data|error} object on stdout, so an alternative implementation can
// replace the subprocess without touching callers.
package yfbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/aruanc/sentinela/pkg/config"
	"github.com/aruanc/sentinela/pkg/logger"
)

// Source tags data that came through the bridge
const Source = "yfinance/yahoo"

// StatementsPayload is the bridge response for the statements action
type StatementsPayload struct {
	Annual    []map[string]interface{} `json:"annual"`
	Quarterly []map[string]interface{} `json:"quarterly"`
}

// Port is the narrow interface callers depend on
type Port interface {
	Search(ctx context.Context, query string) (map[string]interface{}, error)
	History(ctx context.Context, symbol, startDate, endDate, interval string) ([]map[string]interface{}, error)
	Info(ctx context.Context, symbol string) (map[string]interface{}, error)
	Estimates(ctx context.Context, symbol string) (map[string]interface{}, error)
	Statements(ctx context.Context, symbol, statementType string) (StatementsPayload, error)
}

// Bridge runs the python bridge as a subprocess per call
// ⭐ SSOT: o subprocesso yfinance é invocado somente aqui
type Bridge struct {
	scriptPath  string
	interpreter string
	fallback    string
	timeout     time.Duration
	logger      *logger.Logger
}

var _ Port = (*Bridge)(nil)

// New creates a bridge from config
func New(cfg *config.Config, log *logger.Logger) *Bridge {
	timeout := cfg.Bridge.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Bridge{
		scriptPath:  cfg.Bridge.ScriptPath,
		interpreter: cfg.Bridge.Interpreter,
		fallback:    cfg.Bridge.Fallback,
		timeout:     timeout,
		logger:      log.WithField("provider", "yfbridge"),
	}
}

type response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// invoke runs the subprocess once, retrying with the fallback interpreter
// when the primary binary is missing.
func (b *Bridge) invoke(ctx context.Context, payload map[string]interface{}) (json.RawMessage, error) {
	out, err := b.run(ctx, b.interpreter, payload)
	if err != nil && b.fallback != "" && isStartFailure(err) {
		b.logger.WithFields(map[string]interface{}{
			"interpreter": b.interpreter,
			"fallback":    b.fallback,
		}).Warn("Bridge interpreter not found, trying fallback")
		out, err = b.run(ctx, b.fallback, payload)
	}
	if err != nil {
		return nil, err
	}

	var parsed response
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("yfbridge: malformed response: %w", err)
	}
	if !parsed.OK {
		msg := parsed.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("yfbridge: %s", msg)
	}
	return parsed.Data, nil
}

// run executes one bridge call under the hard timeout. CommandContext
// force-terminates the process when the deadline expires.
func (b *Bridge) run(ctx context.Context, interpreter string, payload map[string]interface{}) ([]byte, error) {
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("yfbridge: marshal request: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, interpreter, b.scriptPath)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("yfbridge: timed out after %s", b.timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("yfbridge: %s: %w", firstLine(msg), err)
		}
		return nil, fmt.Errorf("yfbridge: %w", err)
	}

	b.logger.WithFields(map[string]interface{}{
		"action":   payload["action"],
		"duration": time.Since(start),
	}).Debug("Bridge call completed")

	return stdout.Bytes(), nil
}

// isStartFailure reports whether the process never started (missing binary)
func isStartFailure(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) || errors.Is(err, exec.ErrNotFound)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Search runs the yahoo search action
func (b *Bridge) Search(ctx context.Context, query string) (map[string]interface{}, error) {
	data, err := b.invoke(ctx, map[string]interface{}{"action": "search", "query": query})
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("yfbridge: parse search data: %w", err)
	}
	return out, nil
}

// History fetches price history bars
func (b *Bridge) History(ctx context.Context, symbol, startDate, endDate, interval string) ([]map[string]interface{}, error) {
	data, err := b.invoke(ctx, map[string]interface{}{
		"action":     "history",
		"symbol":     symbol,
		"start_date": startDate,
		"end_date":   endDate,
		"interval":   interval,
	})
	if err != nil {
		return nil, err
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("yfbridge: parse history data: %w", err)
	}
	return out, nil
}

// Info fetches the raw company info mapping
func (b *Bridge) Info(ctx context.Context, symbol string) (map[string]interface{}, error) {
	data, err := b.invoke(ctx, map[string]interface{}{"action": "info", "symbol": symbol})
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("yfbridge: parse info data: %w", err)
	}
	return out, nil
}

// Estimates fetches analyst estimate fields
func (b *Bridge) Estimates(ctx context.Context, symbol string) (map[string]interface{}, error) {
	data, err := b.invoke(ctx, map[string]interface{}{"action": "estimates", "symbol": symbol})
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("yfbridge: parse estimates data: %w", err)
	}
	return out, nil
}

// Statements fetches annual and quarterly records for one statement type
func (b *Bridge) Statements(ctx context.Context, symbol, statementType string) (StatementsPayload, error) {
	data, err := b.invoke(ctx, map[string]interface{}{
		"action":         "statements",
		"symbol":         symbol,
		"statement_type": statementType,
	})
	if err != nil {
		return StatementsPayload{}, err
	}
	var out StatementsPayload
	if err := json.Unmarshal(data, &out); err != nil {
		return StatementsPayload{}, fmt.Errorf("yfbridge: parse statements data: %w", err)
	}
	return out, nil
}
