// Package store holds codec helpers shared by the SQL store backends.
package store

import (
	"encoding/json"
	"fmt"

	"pesan/internal/domain"
)

// EncodeContent serializes the message content union for a TEXT column.
func EncodeContent(c domain.MessageContent) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	return string(b), nil
}

func DecodeContent(s string) (domain.MessageContent, error) {
	var c domain.MessageContent
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return c, fmt.Errorf("decode content: %w", err)
	}
	return c, nil
}

// EncodeIDs serializes an id list (disappear_for) for a TEXT column.
func EncodeIDs(ids []int64) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func DecodeIDs(s string) ([]int64, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("decode id list: %w", err)
	}
	return ids, nil
}
