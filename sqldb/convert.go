////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package sqldb

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// CoerceValue converts a scalar that crossed the boundary as JSON into the
// concrete Go type named by the hint. JSON decoding reduces all numbers to
// float64 and blobs to base64 strings; the hint undoes that on the receiving
// side.
//
// A nil value coerces to the hint's zero value, so aggregate queries over
// empty tables (which produce SQL NULL) read as 0, "", or false.
func CoerceValue(value any, hint TypeHint) (any, error) {
	if value == nil {
		switch hint {
		case HintNone:
			return nil, nil
		case HintInt:
			return int64(0), nil
		case HintFloat:
			return float64(0), nil
		case HintText:
			return "", nil
		case HintBlob:
			return []byte(nil), nil
		case HintBool:
			return false, nil
		}
		return nil, errors.Errorf("unknown type hint %q", hint)
	}

	switch hint {
	case HintNone:
		return value, nil

	case HintInt:
		switch v := value.(type) {
		case float64:
			return int64(v), nil
		case int64:
			return v, nil
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot coerce %q to %s", v, hint)
			}
			return n, nil
		}

	case HintFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot coerce %q to %s", v, hint)
			}
			return f, nil
		}

	case HintText:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil

	case HintBlob:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			b, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot coerce string to %s", hint)
			}
			return b, nil
		}

	case HintBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case float64:
			return v != 0, nil
		case int64:
			return v != 0, nil
		}

	default:
		return nil, errors.Errorf("unknown type hint %q", hint)
	}

	return nil, errors.Errorf("cannot coerce %T to %s", value, hint)
}
