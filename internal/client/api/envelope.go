package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

// Decode unmarshals envelope data into T. Empty data yields the zero value.
func Decode[T any](data json.RawMessage) (T, error) {
	var v T
	if isEmpty(data) {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode data: %w", err)
	}
	return v, nil
}

// DecodeList accepts both list shapes: a bare array, or a paginated object
// holding the array under field next to total, page and limit. For a bare
// array the page reports every item on page 1.
func DecodeList[T any](data json.RawMessage, field string) ([]T, models.Page, error) {
	var page models.Page
	trimmed := bytes.TrimSpace(data)
	if isEmpty(trimmed) {
		return []T{}, page, nil
	}

	items := json.RawMessage(trimmed)
	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, page, fmt.Errorf("decode page: %w", err)
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, page, fmt.Errorf("decode page: %w", err)
		}
		items = obj[field]
		if items == nil {
			items = obj["items"]
		}
	}

	out := []T{}
	if !isEmpty(items) {
		if err := json.Unmarshal(items, &out); err != nil {
			return nil, page, fmt.Errorf("decode %s: %w", field, err)
		}
	}
	page.Items = items
	if trimmed[0] == '[' {
		page.Total, page.Page, page.Limit = len(out), 1, len(out)
	}
	return out, page, nil
}

func isEmpty(data []byte) bool {
	d := bytes.TrimSpace(data)
	return len(d) == 0 || bytes.Equal(d, []byte("null"))
}
