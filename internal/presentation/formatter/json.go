package formatter

import (
	"fmt"
	"io"

	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/data/codec"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the canonical snapshot JSON, indented, or null.
func (f *JSONFormatter) Format(w io.Writer, snapshot *model.Snapshot) error {
	if snapshot == nil {
		_, err := fmt.Fprintln(w, "null")
		return err
	}

	data, err := codec.EncodeIndent(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
