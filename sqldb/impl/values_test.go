////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package impl

import (
	"testing"
	"time"
)

// Tests that each database type converts to its JSON-safe form and that
// scalar types cross unchanged.
func TestJsonValue(t *testing.T) {
	stamp := time.Date(2023, 6, 1, 12, 30, 0, 500, time.UTC)

	tests := []struct {
		value, expected any
	}{
		{[]byte{0xDE, 0xAD, 0xBE, 0xEF}, "3q2+7w=="},
		{[]byte{}, ""},
		{stamp, stamp.Format(time.RFC3339Nano)},
		{int64(42), int64(42)},
		{3.5, 3.5},
		{"plain", "plain"},
		{true, true},
		{nil, nil},
	}

	for i, tt := range tests {
		converted := jsonValue(tt.value)
		if converted != tt.expected {
			t.Errorf("Unexpected conversion of %v (%d)."+
				"\nexpected: %v\nreceived: %v",
				tt.value, i, tt.expected, converted)
		}
	}
}

// Tests that row conversion applies to every column.
func TestJsonRow(t *testing.T) {
	row := []any{int64(1), []byte{0x01}, "x", nil}
	converted := jsonRow(row)

	if len(converted) != len(row) {
		t.Fatalf("Unexpected length.\nexpected: %d\nreceived: %d",
			len(row), len(converted))
	}
	if converted[0] != int64(1) || converted[1] != "AQ==" ||
		converted[2] != "x" || converted[3] != nil {
		t.Errorf("Unexpected converted row.\nexpected: %v\nreceived: %v",
			[]any{int64(1), "AQ==", "x", nil}, converted)
	}
}
