////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package sqldb

import (
	"bytes"
	"testing"
)

// Tests that each hint recovers the concrete Go type from the forms JSON
// transport reduces values to.
func TestCoerceValue(t *testing.T) {
	tests := []struct {
		value    any
		hint     TypeHint
		expected any
	}{
		{"unchanged", HintNone, "unchanged"},
		{float64(12), HintNone, float64(12)},

		{float64(42), HintInt, int64(42)},
		{int64(42), HintInt, int64(42)},
		{"42", HintInt, int64(42)},

		{3.5, HintFloat, 3.5},
		{int64(3), HintFloat, 3.0},
		{"3.5", HintFloat, 3.5},

		{"text", HintText, "text"},
		{float64(7), HintText, "7"},

		{true, HintBool, true},
		{false, HintBool, false},
		{float64(1), HintBool, true},
		{float64(0), HintBool, false},
		{int64(2), HintBool, true},
	}

	for i, tt := range tests {
		value, err := CoerceValue(tt.value, tt.hint)
		if err != nil {
			t.Errorf("Failed to coerce %v with hint %s (%d): %+v",
				tt.value, tt.hint, i, err)
		} else if value != tt.expected {
			t.Errorf("Unexpected coercion of %v with hint %s (%d)."+
				"\nexpected: %#v\nreceived: %#v",
				tt.value, tt.hint, i, tt.expected, value)
		}
	}
}

// Tests that blobs decode from their base64 transport form.
func TestCoerceValue_Blob(t *testing.T) {
	value, err := CoerceValue("3q2+7w==", HintBlob)
	if err != nil {
		t.Fatalf("Failed to coerce base64 blob: %+v", err)
	}
	if !bytes.Equal(value.([]byte), []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("Unexpected blob.\nexpected: %v\nreceived: %v",
			[]byte{0xDE, 0xAD, 0xBE, 0xEF}, value)
	}

	raw := []byte{1, 2, 3}
	value, err = CoerceValue(raw, HintBlob)
	if err != nil {
		t.Fatalf("Failed to pass through byte slice: %+v", err)
	}
	if !bytes.Equal(value.([]byte), raw) {
		t.Errorf("Unexpected blob.\nexpected: %v\nreceived: %v", raw, value)
	}

	if _, err = CoerceValue("not base64!", HintBlob); err == nil {
		t.Error("Coercing invalid base64 did not fail.")
	}
}

// Tests that SQL NULL coerces to the hint's zero value.
func TestCoerceValue_Null(t *testing.T) {
	tests := []struct {
		hint     TypeHint
		expected any
	}{
		{HintNone, nil},
		{HintInt, int64(0)},
		{HintFloat, float64(0)},
		{HintText, ""},
		{HintBool, false},
	}

	for _, tt := range tests {
		value, err := CoerceValue(nil, tt.hint)
		if err != nil {
			t.Errorf("Failed to coerce nil with hint %s: %+v", tt.hint, err)
		} else if value != tt.expected {
			t.Errorf("Unexpected nil coercion with hint %s."+
				"\nexpected: %#v\nreceived: %#v", tt.hint, tt.expected, value)
		}
	}

	value, err := CoerceValue(nil, HintBlob)
	if err != nil {
		t.Fatalf("Failed to coerce nil blob: %+v", err)
	}
	if value.([]byte) != nil {
		t.Errorf("Unexpected nil blob coercion.\nexpected: %v\nreceived: %v",
			[]byte(nil), value)
	}
}

// Tests that impossible and unknown coercions report errors.
func TestCoerceValue_Errors(t *testing.T) {
	if _, err := CoerceValue(true, HintInt); err == nil {
		t.Error("Coercing bool to int did not fail.")
	}
	if _, err := CoerceValue("not a number", HintInt); err == nil {
		t.Error("Coercing a non-numeric string to int did not fail.")
	}
	if _, err := CoerceValue("half", HintFloat); err == nil {
		t.Error("Coercing a non-numeric string to float did not fail.")
	}
	if _, err := CoerceValue("x", TypeHint("bogus")); err == nil {
		t.Error("An unknown hint did not fail.")
	}
	if _, err := CoerceValue(nil, TypeHint("bogus")); err == nil {
		t.Error("An unknown hint with a nil value did not fail.")
	}
}
