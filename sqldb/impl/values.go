////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package impl

import (
	"encoding/base64"
	"time"
)

// jsonValue converts a single database value into a form that survives JSON
// transport unambiguously. Byte slices become base64 strings and times become
// RFC 3339 strings; everything else crosses as is.
func jsonValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return value
	}
}

// jsonRow converts every value of a scanned row with [jsonValue].
func jsonRow(row []any) []any {
	converted := make([]any, len(row))
	for i, v := range row {
		converted[i] = jsonValue(v)
	}
	return converted
}
