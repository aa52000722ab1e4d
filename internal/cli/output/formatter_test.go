package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"wide", FormatWide, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
		{"JSON", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format Format
		check  func(Formatter) bool
	}{
		{FormatJSON, func(f Formatter) bool { _, ok := f.(*JSONFormatter); return ok }},
		{FormatYAML, func(f Formatter) bool { _, ok := f.(*YAMLFormatter); return ok }},
		{FormatTable, func(f Formatter) bool { tf, ok := f.(*TableFormatter); return ok && !tf.Wide }},
		{FormatWide, func(f Formatter) bool { tf, ok := f.(*TableFormatter); return ok && tf.Wide }},
		{"unknown", func(f Formatter) bool { _, ok := f.(*TableFormatter); return ok }},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f := NewFormatter(tt.format)
			if f == nil {
				t.Fatal("NewFormatter returned nil")
			}
			if !tt.check(f) {
				t.Errorf("NewFormatter(%q) = %T", tt.format, f)
			}
		})
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	f := &JSONFormatter{}

	t.Run("record", func(t *testing.T) {
		rec := domain.SnapshotRecord{
			FileName:    "0001.jpg",
			Position:    [3]float32{1.5, 0, -2},
			Orientation: [4]float32{0, 0, 0, 1},
		}

		var buf bytes.Buffer
		if err := f.Format(&buf, rec); err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, `"fileName": "0001.jpg"`) {
			t.Errorf("Format() missing fileName field:\n%s", output)
		}
		if !strings.Contains(output, "1.5") {
			t.Errorf("Format() missing position value:\n%s", output)
		}
	})

	t.Run("nil", func(t *testing.T) {
		var buf bytes.Buffer
		if err := f.Format(&buf, nil); err != nil {
			t.Fatalf("Format(nil) error = %v", err)
		}
		if output := strings.TrimSpace(buf.String()); output != "null" {
			t.Errorf("Format(nil) = %q, want 'null'", output)
		}
	})
}

func TestYAMLFormatter_Format(t *testing.T) {
	f := &YAMLFormatter{}

	t.Run("uses json names and keeps field order", func(t *testing.T) {
		data := struct {
			Session string `json:"session"`
			Records int    `json:"records"`
			Written bool   `json:"written"`
		}{
			Session: "kitchen",
			Records: 12,
			Written: true,
		}

		var buf bytes.Buffer
		if err := f.Format(&buf, data); err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		want := "session: kitchen\nrecords: 12\nwritten: true\n"
		if buf.String() != want {
			t.Errorf("Format() = %q, want %q", buf.String(), want)
		}
	})

	t.Run("block style sequences", func(t *testing.T) {
		var buf bytes.Buffer
		if err := f.Format(&buf, map[string]any{"position": []float64{1.5, -2}}); err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		want := "position:\n  - 1.5\n  - -2\n"
		if buf.String() != want {
			t.Errorf("Format() = %q, want %q", buf.String(), want)
		}
	})

	t.Run("quotes ambiguous strings", func(t *testing.T) {
		var buf bytes.Buffer
		if err := f.Format(&buf, map[string]string{"name": "true"}); err != nil {
			t.Fatalf("Format() error = %v", err)
		}

		if strings.TrimSpace(buf.String()) == "name: true" {
			t.Errorf("string %q should stay quoted, got %q", "true", buf.String())
		}
	})
}
