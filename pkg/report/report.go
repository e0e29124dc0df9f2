// Package report exports finished run results to disk for analysis
// tooling. The run itself stays in memory; writing a report is an
// explicit, optional step after Finalizing.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"foliosim/pkg/backtest"
)

// Format selects the on-disk encoding.
type Format string

const (
	// FormatJSON writes indented JSON, readable and diffable.
	FormatJSON Format = "json"
	// FormatMsgpack writes compact msgpack for large histories.
	FormatMsgpack Format = "msgpack"
)

// ParseFormat maps a config string to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("report: unknown format %q", s)
	}
}

// Writer persists run results into a directory, one file per run,
// named by run name and wall-clock timestamp.
type Writer struct {
	dir    string
	format Format
	nowFn  func() time.Time
}

// NewWriter builds a writer rooted at dir, creating it when missing.
func NewWriter(dir string, format Format) *Writer {
	if dir == "" {
		dir = "reports"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, format: format, nowFn: time.Now}
}

// Write encodes the result and returns the path written.
func (w *Writer) Write(runName string, res *backtest.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("report: nil result")
	}
	stamp := w.nowFn().UTC().Format("20060102_150405")
	var (
		data []byte
		err  error
		ext  string
	)
	switch w.format {
	case FormatMsgpack:
		data, err = msgpack.Marshal(res)
		ext = "msgpack"
	default:
		data, err = json.MarshalIndent(res, "", "  ")
		ext = "json"
	}
	if err != nil {
		return "", fmt.Errorf("report: encode %s: %w", runName, err)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("run_%s_%s.%s", runName, stamp, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Read decodes a previously written report back into a Result; the
// format is taken from the file extension.
func Read(path string) (*backtest.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res backtest.Result
	switch filepath.Ext(path) {
	case ".msgpack":
		err = msgpack.Unmarshal(data, &res)
	default:
		err = json.Unmarshal(data, &res)
	}
	if err != nil {
		return nil, fmt.Errorf("report: decode %s: %w", path, err)
	}
	return &res, nil
}
