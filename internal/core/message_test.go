package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewMessageRejectsBlankContent(t *testing.T) {
	for _, content := range []string{"", "   ", "\t\n", " \r\n "} {
		if _, err := NewMessage(content, Person{Alias: "alice"}, time.Now()); !errors.Is(err, ErrEmptyContent) {
			t.Fatalf("NewMessage(%q): expected ErrEmptyContent, got %v", content, err)
		}
	}
}

func TestNewMessageTrimsContent(t *testing.T) {
	msg, err := NewMessage("  hello  \n", Person{Alias: "alice"}, time.Now())
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if msg.Content != "hello" {
		t.Fatalf("expected trimmed content, got %q", msg.Content)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	zone := time.FixedZone("", 9*3600+30*60)
	contents := []string{"hello", "héllo wörld", `quote " and \ slash`, "emoji 🎉", "multi word message"}

	for _, content := range contents {
		msg, err := NewMessage(content, Person{Alias: "alice"}, time.Date(2024, 2, 29, 23, 59, 59, 0, zone))
		if err != nil {
			t.Fatalf("NewMessage(%q): %v", content, err)
		}
		data, err := EncodeMessage(msg)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeMessage(data)
		if err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if got.From != msg.From || got.Content != msg.Content {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
		}
		if !got.SentAt.Equal(msg.SentAt) {
			t.Fatalf("instant changed: got %v want %v", got.SentAt, msg.SentAt)
		}
	}
}

func TestEncodeMessageWireShape(t *testing.T) {
	msg := Message{
		From:    Person{Alias: "alice"},
		Content: "hi",
		SentAt:  time.Date(2023, 1, 1, 0, 30, 0, 0, time.UTC),
	}
	data, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var wire struct {
		Alias struct {
			Alias string `json:"alias"`
		} `json:"alias"`
		Content  string `json:"content"`
		Datetime string `json:"datetime"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wire.Alias.Alias != "alice" || wire.Content != "hi" || wire.Datetime != "2023-01-01 00:30:00 +0000" {
		t.Fatalf("unexpected wire payload: %s", data)
	}
}

func TestDecodeMessageRejectsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{name: "not json", payload: `hello`, field: ""},
		{name: "content only", payload: `{"content":"hi"}`, field: "alias"},
		{name: "alias without name", payload: `{"alias":{},"content":"hi","datetime":"2023-01-01 00:30:00 +0000"}`, field: "alias.alias"},
		{name: "missing content", payload: `{"alias":{"alias":"a"},"datetime":"2023-01-01 00:30:00 +0000"}`, field: "content"},
		{name: "missing datetime", payload: `{"alias":{"alias":"a"},"content":"hi"}`, field: "datetime"},
		{name: "alias wrong type", payload: `{"alias":"a","content":"hi","datetime":"2023-01-01 00:30:00 +0000"}`, field: ""},
		{name: "bad timestamp", payload: `{"alias":{"alias":"a"},"content":"hi","datetime":"yesterday"}`, field: "datetime"},
		{name: "timestamp without offset", payload: `{"alias":{"alias":"a"},"content":"hi","datetime":"2023-01-01 00:30:00"}`, field: "datetime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage([]byte(tt.payload))
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if decodeErr.Field != tt.field {
				t.Fatalf("expected field %q, got %q (%v)", tt.field, decodeErr.Field, err)
			}
		})
	}
}

func TestDecodeMessageIgnoresUnknownFields(t *testing.T) {
	payload := `{"alias":{"alias":"bob","extra":1},"content":"hi","datetime":"2023-01-01 00:30:00 +0000","id":7}`
	msg, err := DecodeMessage([]byte(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.From.Alias != "bob" {
		t.Fatalf("unexpected sender: %+v", msg.From)
	}
}

func TestTimezoneConversionAcrossDayBoundary(t *testing.T) {
	payload := `{"alias":{"alias":"alice"},"content":"hi","datetime":"2023-01-01 00:30:00 +0000"}`
	msg, err := DecodeMessage([]byte(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	local := msg.In(time.FixedZone("EST", -5*3600))
	if got := local.Timestamp(); got != "2022-12-31 19:30:00 -0500" {
		t.Fatalf("unexpected local timestamp: %s", got)
	}
	if !local.SentAt.Equal(msg.SentAt) {
		t.Fatal("conversion changed the instant")
	}
}

func TestTimezoneRoundTripPreservesInstant(t *testing.T) {
	offsets := []int{-12 * 3600, -9*3600 - 30*60, 0, 5*3600 + 45*60, 14 * 3600}
	base := time.Date(2023, 3, 26, 1, 59, 59, 0, time.UTC)

	for _, from := range offsets {
		for _, to := range offsets {
			msg := Message{From: Person{Alias: "a"}, Content: "x", SentAt: base.In(time.FixedZone("", from))}
			converted := msg.In(time.FixedZone("", to))

			reparsed, err := time.Parse("2006-01-02 15:04:05 -0700", converted.Timestamp())
			if err != nil {
				t.Fatalf("reparse %q: %v", converted.Timestamp(), err)
			}
			if !reparsed.Equal(base) {
				t.Fatalf("offset %d -> %d: got %v want %v", from, to, reparsed, base)
			}
		}
	}
}

func TestRender(t *testing.T) {
	msg := Message{
		From:    Person{Alias: "alice"},
		Content: "hello",
		SentAt:  time.Date(2023, 1, 1, 0, 30, 0, 0, time.UTC),
	}
	want := "alice 2023-01-01 00:30:00 +0000\nhello\n"
	if got := msg.Render(); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}
