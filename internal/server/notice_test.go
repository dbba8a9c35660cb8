package server

import (
	"strings"
	"testing"
)

func TestNoticeCodecRoundTrip(t *testing.T) {
	codec := noticeCodec{key: []byte("k1")}
	value, err := codec.encode(Notice{Kind: noticeSuccess, Message: "Document deleted."})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, ok := codec.decode(value)
	if !ok {
		t.Fatal("expected notice to decode")
	}
	if got.Kind != noticeSuccess || got.Message != "Document deleted." {
		t.Fatalf("unexpected notice: %+v", got)
	}
}

func TestNoticeCodecRejectsTampering(t *testing.T) {
	codec := noticeCodec{key: []byte("k1")}
	value, err := codec.encode(Notice{Kind: noticeDanger, Message: "File not found."})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, ok := (noticeCodec{key: []byte("k2")}).decode(value); ok {
		t.Fatal("expected notice signed with another key to be rejected")
	}
	body, sig, _ := strings.Cut(value, ".")
	if _, ok := codec.decode(body + "x." + sig); ok {
		t.Fatal("expected modified body to be rejected")
	}
	for _, raw := range []string{"", "nodot", "a.b"} {
		if _, ok := codec.decode(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestExtensionList(t *testing.T) {
	tests := map[string][]string{
		"allowed":                nil,
		"PDF":                    {"pdf"},
		"PDF and PNG":            {"pdf", "png"},
		"PDF, PNG, JPG and JPEG": {"pdf", "png", "jpg", "jpeg"},
	}
	for want, exts := range tests {
		if got := extensionList(exts); got != want {
			t.Fatalf("extensionList(%v)=%q want %q", exts, got, want)
		}
	}
}
