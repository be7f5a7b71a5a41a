package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewFormatter(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		f := NewFormatter()
		if f.format != FormatText {
			t.Errorf("expected format %v, got %v", FormatText, f.format)
		}
		if !f.colorEnabled {
			t.Error("expected color to be enabled by default")
		}
	})

	t.Run("with custom options", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(
			WithWriter(&buf),
			WithFormat(FormatJSON),
			WithColor(false),
		)

		if f.format != FormatJSON {
			t.Errorf("expected format %v, got %v", FormatJSON, f.format)
		}
		if f.colorEnabled {
			t.Error("expected color to be disabled")
		}
	})
}

func TestFormatter_Print(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf))

	err := f.Print("hello %s", "world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := buf.String(); got != "hello world" {
		t.Errorf("expected 'hello world', got %q", got)
	}
}

func TestFormatter_Println(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf))

	err := f.Println("hello %s", "world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := buf.String(); got != "hello world\n" {
		t.Errorf("expected 'hello world\\n', got %q", got)
	}
}

func TestFormatter_Colorize(t *testing.T) {
	t.Run("with color enabled", func(t *testing.T) {
		f := NewFormatter(WithColor(true))
		result := f.Colorize("test", ColorRed)

		if !strings.Contains(result, string(ColorRed)) {
			t.Error("expected result to contain red color code")
		}
		if !strings.Contains(result, string(ColorReset)) {
			t.Error("expected result to contain reset code")
		}
		if !strings.Contains(result, "test") {
			t.Error("expected result to contain 'test'")
		}
	})

	t.Run("with color disabled", func(t *testing.T) {
		f := NewFormatter(WithColor(false))
		result := f.Colorize("test", ColorRed)

		if result != "test" {
			t.Errorf("expected 'test', got %q", result)
		}
	})
}

func TestFormatter_MessageTypes(t *testing.T) {
	tests := []struct {
		name   string
		method func(*Formatter, string, ...any) error
		prefix string
	}{
		{"Success", (*Formatter).Success, "✓"},
		{"Error", (*Formatter).Error, "✗"},
		{"Warning", (*Formatter).Warning, "⚠"},
		{"Info", (*Formatter).Info, "ℹ"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := NewFormatter(WithWriter(&buf), WithColor(false))

			err := tc.method(f, "test message")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			output := buf.String()
			if !strings.Contains(output, tc.prefix) {
				t.Errorf("expected output to contain %q, got %q", tc.prefix, output)
			}
			if !strings.Contains(output, "test message") {
				t.Errorf("expected output to contain 'test message', got %q", output)
			}
		})
	}
}

func TestFormatter_Header(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithColor(false))

	if err := f.Header("Queue Statistics"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Queue Statistics") {
		t.Errorf("expected output to contain the header, got %q", output)
	}
	if !strings.Contains(output, "─") {
		t.Errorf("expected output to contain an underline, got %q", output)
	}
}

func TestFormatter_Item(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithColor(false))

	if err := f.Item("Status", "pending"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := buf.String(); got != "  Status: pending\n" {
		t.Errorf("expected '  Status: pending\\n', got %q", got)
	}
}

func TestFormatter_Table(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithColor(false))

	data := TableData{
		Columns: []TableColumn{
			{Header: "Status", Width: 10, Align: AlignLeft},
			{Header: "Items", Width: 6, Align: AlignRight},
		},
		Rows: [][]string{
			{"pending", "12"},
			{"completed", "340"},
		},
	}

	if err := f.Table(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Status", "Items", "pending", "340"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) != 4 {
		t.Errorf("expected 4 lines (header, separator, 2 rows), got %d", len(lines))
	}
}

func TestFormatter_TableEmpty(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf))

	if err := f.Table(TableData{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for an empty table, got %q", buf.String())
	}
}

func TestPadCell(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		align Alignment
		want  string
	}{
		{"left", "ab", 5, AlignLeft, "ab   "},
		{"right", "ab", 5, AlignRight, "   ab"},
		{"center", "ab", 6, AlignCenter, "  ab  "},
		{"wider than width", "abcdef", 3, AlignLeft, "abcdef"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := padCell(tc.text, tc.width, tc.align); got != tc.want {
				t.Errorf("padCell(%q, %d) = %q, want %q", tc.text, tc.width, got, tc.want)
			}
		})
	}
}

func TestFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithFormat(FormatJSON))

	payload := map[string]any{"total": 3, "status": "pending"}
	if err := f.JSON(payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["status"] != "pending" {
		t.Errorf("expected status 'pending', got %v", decoded["status"])
	}
}
