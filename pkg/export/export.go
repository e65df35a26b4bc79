// Package export renders ledger records for the history command.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/kilianp07/collabsched/core/ledger"
)

// Formats lists the accepted values of Write's format argument.
var Formats = []string{"table", "json", "csv"}

// Write renders recs in the named format.
func Write(w io.Writer, format string, recs []ledger.Record) error {
	switch format {
	case "", "table":
		return WriteTable(w, recs)
	case "json":
		return WriteJSON(w, recs)
	case "csv":
		return WriteCSV(w, recs)
	default:
		return fmt.Errorf("unknown format %q (want one of %v)", format, Formats)
	}
}

// WriteJSON writes recs as a single JSON array.
func WriteJSON(w io.Writer, recs []ledger.Record) error {
	if recs == nil {
		recs = []ledger.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteCSV writes recs with a header row.
func WriteCSV(w io.Writer, recs []ledger.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "run_id", "row", "name", "status", "session_id", "guest_url", "error", "latency_ms"}); err != nil {
		return err
	}
	for _, r := range recs {
		rec := []string{
			r.Timestamp.Format(time.RFC3339),
			r.RunID,
			strconv.Itoa(r.Row),
			r.Name,
			string(r.Status),
			r.SessionID,
			r.GuestURL,
			r.Error,
			strconv.FormatFloat(r.LatencyMS, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes recs as aligned columns for a terminal.
func WriteTable(w io.Writer, recs []ledger.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tRUN\tNAME\tSTATUS\tSESSION\tGUEST URL")
	for _, r := range recs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.RunID, r.Name, r.Status, r.SessionID, r.GuestURL)
	}
	return tw.Flush()
}
