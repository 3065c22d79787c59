package domain

import (
	"crypto/sha256"
	"fmt"
)

// MaskType names a column masking strategy applied to query results before
// they leave the gate.
type MaskType string

const (
	MaskRedact  MaskType = "redact"
	MaskHash    MaskType = "hash"
	MaskPartial MaskType = "partial"
	MaskNull    MaskType = "null"
)

// Valid reports whether m is a recognised strategy. The zero value "" is
// valid and means "no mask".
func (m MaskType) Valid() bool {
	switch m {
	case MaskRedact, MaskHash, MaskPartial, MaskNull, "":
		return true
	}
	return false
}

// ApplyMask transforms a single value. Masking may change the value's type
// (hash and partial always produce strings); MaskNull yields nil, which reads
// as SQL NULL downstream.
func ApplyMask(value any, maskType MaskType) any {
	if value == nil {
		return nil
	}

	switch maskType {
	case MaskRedact:
		return "***"
	case MaskHash:
		sum := sha256.Sum256([]byte(fmt.Sprintf("%v", value)))
		return fmt.Sprintf("%x", sum)
	case MaskPartial:
		return maskPartial(value)
	case MaskNull:
		return nil
	default:
		return value
	}
}

// maskPartial keeps the last 4 characters visible. Operates on runes so
// multi-byte strings are not corrupted.
func maskPartial(value any) string {
	runes := []rune(fmt.Sprintf("%v", value))
	if len(runes) <= 4 {
		return "***" + string(runes)
	}
	out := make([]rune, len(runes))
	for i := range out {
		if i < len(runes)-4 {
			out[i] = '*'
		} else {
			out[i] = runes[i]
		}
	}
	return string(out)
}

// MaskRows applies column masks to result rows in place. Matching is by
// column name only; no table qualification.
func MaskRows(rows []map[string]any, masks map[string]MaskType) {
	if len(masks) == 0 {
		return
	}
	for _, row := range rows {
		for col, maskType := range masks {
			if val, ok := row[col]; ok {
				row[col] = ApplyMask(val, maskType)
			}
		}
	}
}
