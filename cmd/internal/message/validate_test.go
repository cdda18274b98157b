package message

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func validBody(overrides map[string]string) []byte {
	fields := map[string]string{
		"message_id": `"m1"`,
		"from":       `"+919876543210"`,
		"to":         `"+14155550100"`,
		"ts":         `"2025-01-15T10:00:00Z"`,
		"text":       `"Hello"`,
	}
	for k, v := range overrides {
		if v == "" {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}

	parts := make([]string, 0, len(fields))
	for _, k := range []string{"message_id", "from", "to", "ts", "text"} {
		if v, ok := fields[k]; ok {
			parts = append(parts, fmt.Sprintf("%q:%s", k, v))
		}
	}
	return []byte("{" + strings.Join(parts, ",") + "}")
}

func TestParsePayload_Valid(t *testing.T) {
	t.Parallel()

	m, verr := ParsePayload(validBody(nil))
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if m.MessageID != "m1" || m.From != "+919876543210" || m.To != "+14155550100" {
		t.Fatalf("unexpected message: %+v", m)
	}
	want := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	if !m.TS.Equal(want) {
		t.Fatalf("ts=%v want=%v", m.TS, want)
	}
	if m.Text == nil || *m.Text != "Hello" {
		t.Fatalf("text=%v want Hello", m.Text)
	}
	if m.Seq != 0 {
		t.Fatalf("seq must be unassigned before insert, got %d", m.Seq)
	}
}

func TestParsePayload_OptionalText(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		text string
	}{
		{name: "absent", text: ""},
		{name: "null", text: "null"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, verr := ParsePayload(validBody(map[string]string{"text": tc.text}))
			if verr != nil {
				t.Fatalf("unexpected validation error: %v", verr)
			}
			if m.Text != nil {
				t.Fatalf("expected nil text, got %q", *m.Text)
			}
		})
	}
}

func TestParsePayload_TextLengthBoundary(t *testing.T) {
	t.Parallel()

	// Multi-byte runes: the limit counts code points, not bytes.
	atLimit := strings.Repeat("界", 4096)
	m, verr := ParsePayload(validBody(map[string]string{"text": fmt.Sprintf("%q", atLimit)}))
	if verr != nil {
		t.Fatalf("4096 code points must be accepted: %v", verr)
	}
	if m.Text == nil || *m.Text != atLimit {
		t.Fatalf("text not preserved")
	}

	overLimit := strings.Repeat("界", 4097)
	_, verr = ParsePayload(validBody(map[string]string{"text": fmt.Sprintf("%q", overLimit)}))
	if verr == nil {
		t.Fatalf("4097 code points must be rejected")
	}
	if verr.Kind != FailureFormat || verr.Field != "text" {
		t.Fatalf("got kind=%s field=%s, want format/text", verr.Kind, verr.Field)
	}
}

func TestParsePayload_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		overrides map[string]string
		wantKind  FailureKind
		wantField string
	}{
		{name: "missing message_id", overrides: map[string]string{"message_id": ""}, wantKind: FailureMissing, wantField: "message_id"},
		{name: "empty message_id", overrides: map[string]string{"message_id": `""`}, wantKind: FailureMissing, wantField: "message_id"},
		{name: "from without plus", overrides: map[string]string{"from": `"12345"`}, wantKind: FailureFormat, wantField: "from"},
		{name: "from bare plus", overrides: map[string]string{"from": `"+"`}, wantKind: FailureFormat, wantField: "from"},
		{name: "from with letters", overrides: map[string]string{"from": `"+12ab"`}, wantKind: FailureFormat, wantField: "from"},
		{name: "missing to", overrides: map[string]string{"to": ""}, wantKind: FailureMissing, wantField: "to"},
		{name: "to without plus", overrides: map[string]string{"to": `"14155550100"`}, wantKind: FailureFormat, wantField: "to"},
		{name: "ts with offset", overrides: map[string]string{"ts": `"2025-01-15T10:00:00+00:00"`}, wantKind: FailureFormat, wantField: "ts"},
		{name: "ts without zone", overrides: map[string]string{"ts": `"2025-01-15T10:00:00"`}, wantKind: FailureFormat, wantField: "ts"},
		{name: "ts with space", overrides: map[string]string{"ts": `"2025-01-15 10:00:00Z"`}, wantKind: FailureFormat, wantField: "ts"},
		{name: "missing ts", overrides: map[string]string{"ts": ""}, wantKind: FailureMissing, wantField: "ts"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, verr := ParsePayload(validBody(tc.overrides))
			if verr == nil {
				t.Fatalf("expected rejection")
			}
			if verr.Kind != tc.wantKind || verr.Field != tc.wantField {
				t.Fatalf("got kind=%s field=%s, want kind=%s field=%s", verr.Kind, verr.Field, tc.wantKind, tc.wantField)
			}
		})
	}
}

func TestParsePayload_ShortNumbersAccepted(t *testing.T) {
	t.Parallel()

	// The contract is a plus sign plus digits, not the 15-digit E.164 profile.
	_, verr := ParsePayload(validBody(map[string]string{"from": `"+123"`, "to": `"+1"`}))
	if verr != nil {
		t.Fatalf("+123/+1 must be accepted: %v", verr)
	}
}

func TestParsePayload_Malformed(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		raw  string
	}{
		{name: "truncated", raw: `{"message_id":"m1"`},
		{name: "array", raw: `[1,2,3]`},
		{name: "scalar", raw: `"hello"`},
		{name: "empty", raw: ``},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, verr := ParsePayload([]byte(tc.raw))
			if verr == nil {
				t.Fatalf("expected rejection")
			}
			if verr.Kind != FailureMalformed {
				t.Fatalf("kind=%s want=%s", verr.Kind, FailureMalformed)
			}
		})
	}
}

func TestParsePayload_FirstViolationWins(t *testing.T) {
	t.Parallel()

	// Both from and ts are invalid; from is declared first, so it is reported.
	_, verr := ParsePayload(validBody(map[string]string{"from": `"nope"`, "ts": `"nope"`}))
	if verr == nil {
		t.Fatalf("expected rejection")
	}
	if verr.Field != "from" {
		t.Fatalf("field=%s want=from", verr.Field)
	}
}

func TestParseTS(t *testing.T) {
	t.Parallel()

	if _, err := ParseTS("2025-01-15T10:00:00Z"); err != nil {
		t.Fatalf("canonical form must parse: %v", err)
	}
	if got, err := ParseTS("2025-01-15T10:00:00.250Z"); err != nil || got.Nanosecond() != 250_000_000 {
		t.Fatalf("fractional seconds must parse, got=%v err=%v", got, err)
	}
	for _, bad := range []string{"2025-01-15T10:00:00+00:00", "2025-01-15T10:00:00", "2025-01-15T10:00:00+05:30", "not-a-time", ""} {
		if _, err := ParseTS(bad); err == nil {
			t.Fatalf("%q must be rejected", bad)
		}
	}
}

func TestFormatTS_Canonical(t *testing.T) {
	t.Parallel()

	in := time.Date(2025, 1, 15, 15, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	if got := FormatTS(in); got != "2025-01-15T10:00:00Z" {
		t.Fatalf("FormatTS=%q want=2025-01-15T10:00:00Z", got)
	}
}
