// Package corpus reads labelled training documents and extracts article text
// from saved HTML pages.
package corpus

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"truthlens/internal/model"
	"truthlens/internal/util"
)

var ErrUnsupportedFormat = errors.New("corpus: unsupported file format")

// LoadFile reads samples from a .csv (header text,label) or .jsonl file.
func LoadFile(path string) ([]model.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".jsonl", ".ndjson":
		return ReadJSONL(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadCSV expects a header row naming "text" and "label" columns in any order.
func ReadCSV(r io.Reader) ([]model.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	textCol, labelCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "text":
			textCol = i
		case "label":
			labelCol = i
		}
	}
	if textCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("csv header must name text and label columns, got %v", header)
	}
	var out []model.Sample
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if textCol >= len(rec) || labelCol >= len(rec) {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, len(header), len(rec))
		}
		s, err := sample(rec[textCol], rec[labelCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadJSONL reads one {"text": ..., "label": ...} object per line.
func ReadJSONL(r io.Reader) ([]model.Sample, error) {
	var out []model.Sample
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var row struct {
			Text  string          `json:"text"`
			Label json.RawMessage `json:"label"`
		}
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s, err := sample(row.Text, strings.Trim(string(row.Label), `"`))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

func sample(text, label string) (model.Sample, error) {
	l, ok := model.ParseLabel(strings.TrimSpace(label))
	if !ok {
		return model.Sample{}, fmt.Errorf("unknown label %q", label)
	}
	if strings.TrimSpace(text) == "" {
		return model.Sample{}, errors.New("empty text")
	}
	return model.Sample{Text: text, Label: l}, nil
}

// ExtractHTML returns the headline and paragraph text of an HTML article with
// whitespace collapsed.
func ExtractHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	doc.Find("script, style, noscript, nav, footer").Remove()

	var parts []string
	if h := util.NormalizeWhitespace(doc.Find("h1").First().Text()); h != "" {
		parts = append(parts, h)
	} else if t := util.NormalizeWhitespace(doc.Find("title").First().Text()); t != "" {
		parts = append(parts, t)
	}
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if p := util.NormalizeWhitespace(s.Text()); p != "" {
			parts = append(parts, p)
		}
	})
	if len(parts) <= 1 {
		if body := util.NormalizeWhitespace(doc.Find("body").Text()); body != "" {
			return body, nil
		}
	}
	return strings.Join(parts, " "), nil
}
