package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gazepomdp/internal/model"
)

// TraceHeader is the column order of trace.csv.
var TraceHeader = []string{
	"episode", "step",
	"target_x", "target_y", "target_width",
	"fixation_x", "fixation_y",
	"action_x", "action_y",
	"obs_x", "obs_y", "obs_std",
	"reward", "done", "truncated",
}

// TraceWriter streams trace rows as CSV. The header is written with the
// first row so an empty evaluation still yields a valid file after Flush.
type TraceWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{w: csv.NewWriter(w)}
}

func (t *TraceWriter) Write(row model.TraceRow) error {
	if err := t.header(); err != nil {
		return err
	}
	return t.w.Write([]string{
		strconv.Itoa(row.Episode),
		strconv.Itoa(row.Step),
		formatFloat(row.TargetX),
		formatFloat(row.TargetY),
		formatFloat(row.TargetWidth),
		formatFloat(row.FixationX),
		formatFloat(row.FixationY),
		formatFloat(row.ActionX),
		formatFloat(row.ActionY),
		formatFloat(row.BeliefX),
		formatFloat(row.BeliefY),
		formatFloat(row.BeliefStd),
		formatFloat(row.Reward),
		strconv.FormatBool(row.Done),
		strconv.FormatBool(row.Truncated),
	})
}

// Flush pushes buffered rows to the underlying writer.
func (t *TraceWriter) Flush() error {
	if err := t.header(); err != nil {
		return err
	}
	t.w.Flush()
	return t.w.Error()
}

func (t *TraceWriter) header() error {
	if t.wroteHeader {
		return nil
	}
	t.wroteHeader = true
	return t.w.Write(TraceHeader)
}

// TraceSink is a TraceWriter backed by a file it owns.
type TraceSink struct {
	*TraceWriter
	file *os.File
}

// CreateTraceFile creates path (and its parent directory) for writing.
func CreateTraceFile(path string) (*TraceSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &TraceSink{TraceWriter: NewTraceWriter(file), file: file}, nil
}

func (t *TraceSink) Close() error {
	flushErr := t.Flush()
	closeErr := t.file.Close()
	return errors.Join(flushErr, closeErr)
}

// ReadTrace parses a trace written by TraceWriter.
func ReadTrace(r io.Reader) ([]model.TraceRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(TraceHeader)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.TraceRow{}, nil
		}
		return nil, err
	}
	for i, name := range TraceHeader {
		if header[i] != name {
			return nil, fmt.Errorf("trace header column %d: got %q want %q", i, header[i], name)
		}
	}

	rows := make([]model.TraceRow, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row, err := parseTraceRecord(record)
		if err != nil {
			return nil, fmt.Errorf("trace row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseTraceRecord(record []string) (model.TraceRow, error) {
	var (
		row  model.TraceRow
		errs []error
	)
	atoi := func(s string) int {
		v, err := strconv.Atoi(s)
		errs = append(errs, err)
		return v
	}
	atof := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		errs = append(errs, err)
		return v
	}
	atob := func(s string) bool {
		v, err := strconv.ParseBool(s)
		errs = append(errs, err)
		return v
	}
	row.Episode = atoi(record[0])
	row.Step = atoi(record[1])
	row.TargetX = atof(record[2])
	row.TargetY = atof(record[3])
	row.TargetWidth = atof(record[4])
	row.FixationX = atof(record[5])
	row.FixationY = atof(record[6])
	row.ActionX = atof(record[7])
	row.ActionY = atof(record[8])
	row.BeliefX = atof(record[9])
	row.BeliefY = atof(record[10])
	row.BeliefStd = atof(record[11])
	row.Reward = atof(record[12])
	row.Done = atob(record[13])
	row.Truncated = atob(record[14])
	if err := errors.Join(errs...); err != nil {
		return model.TraceRow{}, err
	}
	return row, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
