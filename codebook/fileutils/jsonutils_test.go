package fileutils

import "testing"

func TestDecodeModelJSON_Direct(t *testing.T) {
	t.Parallel()

	var v struct {
		A int `json:"a"`
	}
	if err := DecodeModelJSON(`{"a": 3}`, &v); err != nil {
		t.Fatalf("DecodeModelJSON: %v", err)
	}
	if v.A != 3 {
		t.Fatalf("v.A=%d, want 3", v.A)
	}
}

func TestDecodeModelJSON_WrappedInProse(t *testing.T) {
	t.Parallel()

	var v struct {
		A int `json:"a"`
	}
	input := "Here is the result:\n{\"a\": 7}\nHope that helps."
	if err := DecodeModelJSON(input, &v); err != nil {
		t.Fatalf("DecodeModelJSON: %v", err)
	}
	if v.A != 7 {
		t.Fatalf("v.A=%d, want 7", v.A)
	}
}

func TestDecodeModelJSON_NoJSON(t *testing.T) {
	t.Parallel()

	var v map[string]any
	if err := DecodeModelJSON("no json here", &v); err == nil {
		t.Fatalf("DecodeModelJSON accepted prose without JSON")
	}
	if err := DecodeModelJSON("   ", &v); err == nil {
		t.Fatalf("DecodeModelJSON accepted whitespace")
	}
}
