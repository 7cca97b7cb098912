package backend

import (
	"encoding/json"
	"fmt"
)

// DecodeRows decodes a JSON array of rows into dst following q.Single.
// It is shared by the Tables implementations that materialise rows as JSON.
func DecodeRows(rows []json.RawMessage, q Query, dst any) error {
	if dst == nil {
		return nil
	}

	if q.Single {
		if len(rows) != 1 {
			return NoRows(len(rows))
		}
		if err := json.Unmarshal(rows[0], dst); err != nil {
			return fmt.Errorf("decode row: %w", err)
		}
		return nil
	}

	if rows == nil {
		rows = []json.RawMessage{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}
