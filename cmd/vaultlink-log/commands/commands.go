// Package commands implements the vaultlink-log subcommands.
package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/log"
)

// ParseDirectionFlag parses a -direction flag value.
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch s {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want in, out)", s)
	}
}

// ParseTransportFlag parses a -transport flag value.
func ParseTransportFlag(s string) (log.TransportKind, error) {
	switch s {
	case "local":
		return log.TransportLocal, nil
	case "remote":
		return log.TransportRemote, nil
	case "session":
		return log.TransportSession, nil
	default:
		return 0, fmt.Errorf("unknown transport %q (want local, remote, session)", s)
	}
}

// ParseCategoryFlag parses a -category flag value.
func ParseCategoryFlag(s string) (log.Category, error) {
	switch s {
	case "command":
		return log.CategoryCommand, nil
	case "response":
		return log.CategoryResponse, nil
	case "state":
		return log.CategoryState, nil
	case "signal":
		return log.CategorySignal, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("unknown category %q (want command, response, state, signal, error)", s)
	}
}

// RunView prints matching events in a human-readable line format.
func RunView(path string, filter log.Filter, w io.Writer) error {
	r, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		event, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, FormatEvent(event))
	}
}

// FormatEvent renders one event as a single line.
func FormatEvent(e Event) string {
	return fmt.Sprintf("%s  %-8s %-6s %-3s %-8s %s",
		e.Timestamp.Format("15:04:05.000"),
		shortID(e.ConnectionID),
		e.Transport,
		e.Direction,
		e.Category,
		eventDetail(e),
	)
}

// Event aliases the trace event type for callers of this package.
type Event = log.Event

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func eventDetail(e Event) string {
	switch {
	case e.Command != nil:
		return fmt.Sprintf("%s id=%s size=%d", e.Command.Name, shortID(e.Command.CorrelationID), e.Command.Size)
	case e.Response != nil:
		kind := "reply"
		if e.Response.Push {
			kind = "push"
		}
		return fmt.Sprintf("%s (%s) id=%s size=%d", e.Response.Type, kind, shortID(e.Response.CorrelationID), e.Response.Size)
	case e.StateChange != nil:
		detail := fmt.Sprintf("%s -> %s", e.StateChange.OldState, e.StateChange.NewState)
		if e.StateChange.Reason != "" {
			detail += " (" + e.StateChange.Reason + ")"
		}
		return detail
	case e.Signal != nil:
		if e.Signal.Peer != "" {
			return fmt.Sprintf("%s to=%s", e.Signal.Type, shortID(e.Signal.Peer))
		}
		return e.Signal.Type
	case e.Error != nil:
		if e.Error.Context != "" {
			return fmt.Sprintf("%s: %s", e.Error.Context, e.Error.Message)
		}
		return e.Error.Message
	default:
		return ""
	}
}

// RunExport writes matching events as JSONL or CSV.
func RunExport(path, format, output string) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	r, err := log.NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	switch format {
	case "jsonl":
		return exportJSONL(r, w)
	case "csv":
		return exportCSV(r, w)
	default:
		return fmt.Errorf("unknown format %q (want jsonl, csv)", format)
	}
}

func exportJSONL(r *log.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	for {
		event, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := enc.Encode(event); err != nil {
			return err
		}
	}
}

func exportCSV(r *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"timestamp", "connection", "transport", "direction", "category", "detail"}); err != nil {
		return err
	}

	for {
		event, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		record := []string{
			event.Timestamp.Format(time.RFC3339Nano),
			event.ConnectionID,
			event.Transport.String(),
			event.Direction.String(),
			event.Category.String(),
			eventDetail(event),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
}

// FilterOptions selects events for RunFilter.
type FilterOptions struct {
	Output    string
	ConnID    string
	Transport string
	Direction string
	Category  string
	TimeStart string
	TimeEnd   string
}

// BuildFilter converts flag values into a reader filter.
func BuildFilter(opts FilterOptions) (log.Filter, error) {
	filter := log.Filter{ConnectionID: opts.ConnID}

	if opts.Transport != "" {
		k, err := ParseTransportFlag(opts.Transport)
		if err != nil {
			return filter, err
		}
		filter.Transport = &k
	}
	if opts.Direction != "" {
		d, err := ParseDirectionFlag(opts.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if opts.Category != "" {
		c, err := ParseCategoryFlag(opts.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("bad time-start: %w", err)
		}
		filter.TimeStart = &t
	}
	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("bad time-end: %w", err)
		}
		filter.TimeEnd = &t
	}

	return filter, nil
}

// RunFilter copies matching events into a new trace file.
func RunFilter(path string, opts FilterOptions) error {
	filter, err := BuildFilter(opts)
	if err != nil {
		return err
	}

	r, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	for {
		event, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		out.Log(event)
	}
}

// Stats summarizes a trace file.
type Stats struct {
	Total      int
	First      time.Time
	Last       time.Time
	ByCategory map[string]int
	ByCommand  map[string]int
	ByResponse map[string]int
	Errors     int
}

// CollectStats reads a whole trace file and aggregates counts.
func CollectStats(path string) (*Stats, error) {
	r, err := log.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	stats := &Stats{
		ByCategory: make(map[string]int),
		ByCommand:  make(map[string]int),
		ByResponse: make(map[string]int),
	}

	for {
		event, err := r.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return nil, err
		}

		if stats.Total == 0 || event.Timestamp.Before(stats.First) {
			stats.First = event.Timestamp
		}
		if event.Timestamp.After(stats.Last) {
			stats.Last = event.Timestamp
		}
		stats.Total++
		stats.ByCategory[event.Category.String()]++

		switch {
		case e2cmd(event) != "":
			stats.ByCommand[e2cmd(event)]++
		case event.Response != nil:
			stats.ByResponse[event.Response.Type]++
		case event.Error != nil:
			stats.Errors++
		}
	}
}

func e2cmd(e Event) string {
	if e.Command != nil {
		return e.Command.Name
	}
	return ""
}

// RunStats prints a summary of the trace file.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Events: %d\n", stats.Total)
	if stats.Total > 0 {
		fmt.Fprintf(w, "Span:   %s .. %s (%s)\n",
			stats.First.Format(time.RFC3339),
			stats.Last.Format(time.RFC3339),
			stats.Last.Sub(stats.First).Round(time.Millisecond))
	}

	printCounts(w, "By category", stats.ByCategory)
	printCounts(w, "Commands", stats.ByCommand)
	printCounts(w, "Responses", stats.ByResponse)
	if stats.Errors > 0 {
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
	return nil
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %s\n", k, strconv.Itoa(counts[k]))
	}
}
