package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/itchyny/gojq"
)

// OutputFormat names an encoding for command results.
type OutputFormat string

const (
	FormatYAML OutputFormat = "yaml"
	FormatJSON OutputFormat = "json"

	// FormatRaw prints strings and bytes verbatim, one line per element of
	// a list of strings, and anything else as YAML.
	FormatRaw OutputFormat = "raw"
)

var encoders = map[OutputFormat]func(io.Writer, any) error{
	FormatYAML: writeYAML,
	FormatJSON: writeJSON,
	FormatRaw:  writeRaw,
}

// ParseFormat validates a format name. The empty name selects YAML.
func ParseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(s))
	if f == "" {
		return FormatYAML, nil
	}
	if _, ok := encoders[f]; !ok {
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
	return f, nil
}

// OutputOptions selects how and where Output writes.
type OutputOptions struct {
	Format OutputFormat

	// File receives the output when Writer is nil. Both empty means
	// standard output.
	File string

	// Query is a jq expression applied before encoding.
	Query string

	Writer io.Writer
}

// Output filters result through the query, encodes it and writes it to the
// destination of opts.
func Output(result any, opts OutputOptions) error {
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return err
	}
	if opts.Query != "" {
		if result, err = Query(result, opts.Query); err != nil {
			return err
		}
	}

	w := opts.Writer
	switch {
	case w != nil:
	case opts.File != "":
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		if err := encoders[format](f, result); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		w = os.Stdout
	}
	return encoders[format](w, result)
}

// Query runs a jq expression over result. One emitted value is returned
// as is; any other count is returned as a slice.
func Query(result any, expr string) (any, error) {
	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}
	input, err := plain(result)
	if err != nil {
		return nil, err
	}

	var out []any
	iter := code.Run(input)
	for v, ok := iter.Next(); ok; v, ok = iter.Next() {
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("query %q: %w", expr, err)
		}
		out = append(out, v)
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

// plain converts v to the generic JSON values gojq operates on. Integral
// numbers become int so they print without a fraction.
func plain(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return ints(out), nil
}

func ints(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = ints(e)
		}
	case []any:
		for i, e := range t {
			t[i] = ints(e)
		}
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func writeRaw(w io.Writer, v any) error {
	switch t := v.(type) {
	case []byte:
		_, err := w.Write(t)
		return err
	case string:
		return writeLine(w, t)
	case []any:
		lines := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return writeYAML(w, v)
			}
			lines = append(lines, s)
		}
		for _, s := range lines {
			if err := writeLine(w, s); err != nil {
				return err
			}
		}
		return nil
	default:
		return writeYAML(w, v)
	}
}

func writeLine(w io.Writer, s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

// PrintSuccess prints a checkmarked message to standard output.
func PrintSuccess(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// PrintWarning prints a warning to standard error.
func PrintWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}

// MaskAPIKey keeps the first and last four characters of a credential.
// Keys of eight characters or fewer are masked entirely.
func MaskAPIKey(key string) string {
	const keep = 4
	if len(key) <= 2*keep {
		return strings.Repeat("*", len(key))
	}
	return key[:keep] + strings.Repeat("*", len(key)-2*keep) + key[len(key)-keep:]
}
