package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// DesignFile is an opaque reference to a buyer-uploaded artwork file. The
// platform never interprets file contents; URL plus display metadata is all
// the review flow needs.
type DesignFile struct {
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	SizeByte int64  `json:"size_bytes,omitempty"`
}

// Validate rejects file refs without a usable URL.
func (f DesignFile) Validate() error {
	if strings.TrimSpace(f.URL) == "" {
		return fmt.Errorf("design file url is required")
	}
	return nil
}

// DesignFiles is the jsonb-backed list stored on a design approval.
type DesignFiles []DesignFile

// Value implements driver.Valuer for jsonb storage.
func (f DesignFiles) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for jsonb storage.
func (f *DesignFiles) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported design files column type %T", value)
	}
	if len(raw) == 0 {
		*f = nil
		return nil
	}
	return json.Unmarshal(raw, f)
}

// Validate checks each file ref and requires at least one entry.
func (f DesignFiles) Validate() error {
	if len(f) == 0 {
		return fmt.Errorf("at least one design file is required")
	}
	for i, file := range f {
		if err := file.Validate(); err != nil {
			return fmt.Errorf("design file %d: %w", i, err)
		}
	}
	return nil
}
