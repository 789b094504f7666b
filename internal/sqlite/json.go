package sqlite

import (
	"encoding/json"
	"time"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

// normalizeRow returns a copy of row with time values rendered as RFC 3339
// strings, so stored rows sort and compare as text.
func normalizeRow(row types.Row) types.Row {
	out := make(types.Row, len(row))
	for k, v := range row {
		switch t := v.(type) {
		case time.Time:
			out[k] = types.FormatTimestamp(t)
		case *time.Time:
			if t != nil {
				out[k] = types.FormatTimestamp(*t)
			} else {
				out[k] = nil
			}
		default:
			out[k] = v
		}
	}
	return out
}

func encodeRow(row types.Row) (string, error) {
	data, err := json.Marshal(map[string]any(normalizeRow(row)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeRow(data string) (types.Row, error) {
	var row types.Row
	if err := json.Unmarshal([]byte(data), &row); err != nil {
		return nil, err
	}
	if row == nil {
		row = types.Row{}
	}
	return row, nil
}
