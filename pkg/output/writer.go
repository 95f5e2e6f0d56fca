package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Format selects the output encoding for Write.
type Format int

const (
	Text Format = iota
	JSON
	CSV
)

// Options controls how Write renders text-format rows. JSON and CSV
// always carry packageType and source; only the human-readable table
// has a compact default worth overriding.
type Options struct {
	// IncludePackageSource prints packageType and source alongside the
	// default text columns (--package-source). JSON/CSV already carry
	// both fields regardless of this option.
	IncludePackageSource bool
}

// csvHeader is the fixed column order for --csv output. Evidence and
// breakdown are not representable in flat CSV and are omitted even when
// requested; callers that need them should use --json.
var csvHeader = []string{"type", "scope", "path", "version", "packageType", "source", "confidence"}

// Write renders records in the selected format to w. A nil or empty
// records slice still produces valid output (an empty JSON array, a
// CSV with only its header, or no text rows).
func Write(w io.Writer, records []HitRecord, format Format, opts Options) error {
	switch format {
	case JSON:
		return writeJSON(w, records)
	case CSV:
		return writeCSV(w, records)
	default:
		return writeText(w, records, opts)
	}
}

func writeJSON(w io.Writer, records []HitRecord) error {
	if records == nil {
		records = []HitRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

func writeCSV(w io.Writer, records []HitRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("output: write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Type,
			r.Scope,
			r.Path,
			r.Version,
			r.PackageType,
			strings.Join(r.Source, ";"),
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("output: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("output: flush csv: %w", err)
	}
	return nil
}

func writeText(w io.Writer, records []HitRecord, opts Options) error {
	for _, r := range records {
		line := fmt.Sprintf("%-10s %-7s %6.2f  %s", r.Type, r.Scope, r.Confidence, r.Path)
		if r.Version != "" {
			line += "  (v" + r.Version + ")"
		}
		if opts.IncludePackageSource {
			line += fmt.Sprintf("  [%s via %s]", r.PackageType, strings.Join(r.Source, ";"))
		}
		if err := writeAll(w, append([]byte(line), '\n')); err != nil {
			return fmt.Errorf("output: write text row: %w", err)
		}
		if len(r.Evidence) > 0 {
			for _, k := range sortedKeys(r.Evidence) {
				evLine := fmt.Sprintf("    %s: %s\n", k, r.Evidence[k])
				if err := writeAll(w, []byte(evLine)); err != nil {
					return fmt.Errorf("output: write evidence row: %w", err)
				}
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeAll writes all of p to w, looping through short writes.
//
// Grounded on the teacher's pkg/output.writeAll: io.Writer.Write may
// return n < len(p) with a nil error, which would otherwise silently
// truncate a line.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
