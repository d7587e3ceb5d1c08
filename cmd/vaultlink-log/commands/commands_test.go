package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/log"
)

func createTestTraceFile(t *testing.T, events []log.Event) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.vlog")
	fl, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		fl.Log(e)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func sampleEvents() []log.Event {
	ts := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	return []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "conn-aaaa-bbbb",
			Direction:    log.DirectionOut,
			Transport:    log.TransportLocal,
			Category:     log.CategoryCommand,
			Command:      &log.CommandEvent{Name: "GET_TREE", CorrelationID: "req-1", Size: 96},
		},
		{
			Timestamp:    ts.Add(50 * time.Millisecond),
			ConnectionID: "conn-aaaa-bbbb",
			Direction:    log.DirectionIn,
			Transport:    log.TransportLocal,
			Category:     log.CategoryResponse,
			Response:     &log.ResponseEvent{Type: "TREE", CorrelationID: "req-1", Size: 2048},
		},
		{
			Timestamp:    ts.Add(time.Second),
			ConnectionID: "conn-cccc-dddd",
			Direction:    log.DirectionOut,
			Transport:    log.TransportRemote,
			Category:     log.CategoryState,
			StateChange:  &log.StateChangeEvent{OldState: "ACTIVE", NewState: "RECONNECTING", Reason: "link lost"},
		},
		{
			Timestamp:    ts.Add(2 * time.Second),
			ConnectionID: "conn-cccc-dddd",
			Direction:    log.DirectionIn,
			Transport:    log.TransportRemote,
			Category:     log.CategoryError,
			Error:        &log.ErrorEventData{Context: "reconnect", Message: "retry budget exhausted"},
		},
	}
}

func TestViewAllEvents(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), output)
	}

	if !strings.Contains(output, "GET_TREE") {
		t.Error("expected GET_TREE in output")
	}
	if !strings.Contains(output, "ACTIVE -> RECONNECTING (link lost)") {
		t.Error("expected state transition in output")
	}
	if !strings.Contains(output, "reconnect: retry budget exhausted") {
		t.Error("expected error detail in output")
	}
}

func TestViewFilterByTransport(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())

	remote := log.TransportRemote
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Transport: &remote}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "GET_TREE") {
		t.Error("local events should be filtered out")
	}
	if !strings.Contains(output, "RECONNECTING") {
		t.Error("expected remote events in output")
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", output); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data := readFile(t, output)
	lines := strings.Split(strings.TrimSpace(data), "\n")
	// Header plus four events.
	if len(lines) != 5 {
		t.Fatalf("expected 5 CSV lines, got %d:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "timestamp,connection,transport") {
		t.Errorf("unexpected CSV header: %s", lines[0])
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", output); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data := readFile(t, output)
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 JSONL lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "GET_TREE") {
		t.Errorf("expected GET_TREE in first line: %s", lines[0])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())

	err := RunExport(path, "xml", "")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestFilterByConnection(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "filtered.vlog")

	err := RunFilter(path, FilterOptions{Output: output, ConnID: "conn-cccc-dddd"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	events := readTrace(t, output)
	if len(events) != 2 {
		t.Fatalf("expected 2 filtered events, got %d", len(events))
	}
	for _, e := range events {
		if e.ConnectionID != "conn-cccc-dddd" {
			t.Errorf("unexpected connection ID %s", e.ConnectionID)
		}
	}
}

func TestFilterByTimeRange(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "filtered.vlog")

	err := RunFilter(path, FilterOptions{
		Output:    output,
		TimeStart: "2026-02-10T09:00:01Z",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	events := readTrace(t, output)
	if len(events) != 2 {
		t.Fatalf("expected 2 events at or after cutoff, got %d", len(events))
	}
}

func TestFilterBadTime(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())

	err := RunFilter(path, FilterOptions{
		Output:    filepath.Join(t.TempDir(), "out.vlog"),
		TimeStart: "not-a-time",
	})
	if err == nil {
		t.Fatal("expected error for bad time-start")
	}
}

func TestStatsOutput(t *testing.T) {
	path := createTestTraceFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Events: 4") {
		t.Errorf("expected event count in output:\n%s", output)
	}
	if !strings.Contains(output, "GET_TREE") {
		t.Error("expected command breakdown in output")
	}
	if !strings.Contains(output, "TREE") {
		t.Error("expected response breakdown in output")
	}
	if !strings.Contains(output, "Errors: 1") {
		t.Errorf("expected error count in output:\n%s", output)
	}
	if !strings.Contains(output, "Span:") {
		t.Error("expected time span in output")
	}
}

func TestParseTransportFlag(t *testing.T) {
	k, err := ParseTransportFlag("remote")
	if err != nil {
		t.Fatalf("ParseTransportFlag failed: %v", err)
	}
	if k != log.TransportRemote {
		t.Errorf("expected TransportRemote, got %v", k)
	}

	if _, err := ParseTransportFlag("carrier-pigeon"); err == nil {
		t.Error("expected error for unknown transport")
	}
}

func TestParseDirectionFlag(t *testing.T) {
	d, err := ParseDirectionFlag("in")
	if err != nil {
		t.Fatalf("ParseDirectionFlag failed: %v", err)
	}
	if d != log.DirectionIn {
		t.Errorf("expected DirectionIn, got %v", d)
	}

	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestParseCategoryFlag(t *testing.T) {
	c, err := ParseCategoryFlag("signal")
	if err != nil {
		t.Fatalf("ParseCategoryFlag failed: %v", err)
	}
	if c != log.CategorySignal {
		t.Errorf("expected CategorySignal, got %v", c)
	}

	if _, err := ParseCategoryFlag("gossip"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func readTrace(t *testing.T, path string) []log.Event {
	t.Helper()

	r, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	var events []log.Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, e)
	}
}
