package delivery

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// BodyFormat describes how payload lines are interpreted.
type BodyFormat string

const (
	BodyJSON BodyFormat = "json"
	BodyForm BodyFormat = "form"
	BodyRaw  BodyFormat = "raw"
)

// ParseBodyFormat validates and normalizes a format string.
func ParseBodyFormat(value string) (BodyFormat, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(BodyJSON):
		return BodyJSON, nil
	case string(BodyForm):
		return BodyForm, nil
	case string(BodyRaw):
		return BodyRaw, nil
	default:
		return "", fmt.Errorf("unsupported body format: %s", value)
	}
}

// ContentType is the default Content-Type header for the format.
func (f BodyFormat) ContentType() string {
	switch f {
	case BodyForm:
		return "application/x-www-form-urlencoded"
	case BodyRaw:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Payload is one line of the input file.
type Payload struct {
	Line int
	Body []byte
}

// ReadPayloadsFile reads payloads from path, or stdin when path is "-".
func ReadPayloadsFile(path string, format BodyFormat) ([]Payload, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck // best-effort cleanup on read-only file
		reader = file
	}
	return ReadPayloads(reader, format)
}

// ReadPayloads reads one payload per non-empty line; lines starting with #
// are comments.
func ReadPayloads(r io.Reader, format BodyFormat) ([]Payload, error) {
	payloads := make([]Payload, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		body, err := encodeLine(raw, format)
		if err != nil {
			return nil, fmt.Errorf("invalid payload on line %d: %w", line, err)
		}
		payloads = append(payloads, Payload{Line: line, Body: body})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return payloads, nil
}

func encodeLine(raw string, format BodyFormat) ([]byte, error) {
	switch format {
	case BodyForm:
		values, err := url.ParseQuery(raw)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("no form fields")
		}
		return []byte(values.Encode()), nil
	case BodyRaw:
		return []byte(raw), nil
	default:
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("not valid JSON")
		}
		return []byte(raw), nil
	}
}
