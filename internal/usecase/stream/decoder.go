package stream

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"chatstream/internal/domain"
)

// DefaultToolOutputsField is the payload field carrying a tool-output batch.
const DefaultToolOutputsField = "tool_outputs"

// contentPaths are inspected in priority order; the first non-empty wins.
var contentPaths = []string{
	"model.messages.0.content",
	"content",
	"output",
}

// Decoder classifies frame payloads into domain.StreamEvent values.
// A Decoder is immutable and safe for concurrent use.
type Decoder struct {
	toolField string
}

// NewDecoder creates a decoder that reads tool-output batches from
// toolField (a gjson path). An empty toolField selects DefaultToolOutputsField.
func NewDecoder(toolField string) *Decoder {
	if toolField == "" {
		toolField = DefaultToolOutputsField
	}
	return &Decoder{toolField: toolField}
}

// Decode parses one payload. It never fails: malformed JSON yields an
// Unrecognized event whose Err wraps domain.ErrFrameDecode. Content takes
// precedence over a tool-output batch present in the same payload.
func (d *Decoder) Decode(payload string) domain.StreamEvent {
	if !gjson.Valid(payload) {
		return domain.Unrecognized(payload, fmt.Errorf("%w: invalid JSON: %s", domain.ErrFrameDecode, truncate(payload, 80)))
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return domain.Unrecognized(payload, nil)
	}

	for _, path := range contentPaths {
		if text, ok := contentText(root.Get(path)); ok {
			return domain.ContentSnapshot(text)
		}
	}

	if batch := toolOutputs(root.Get(d.toolField)); len(batch) > 0 {
		return domain.ToolOutputs(batch)
	}
	return domain.Unrecognized(payload, nil)
}

// contentText extracts text from a string value or from a list of content
// blocks (plain strings and {"type":"text","text":...} objects).
func contentText(r gjson.Result) (string, bool) {
	switch {
	case r.Type == gjson.String:
		return r.Str, r.Str != ""
	case r.IsArray():
		var sb strings.Builder
		r.ForEach(func(_, block gjson.Result) bool {
			switch {
			case block.Type == gjson.String:
				sb.WriteString(block.Str)
			case block.IsObject() && block.Get("type").String() == "text":
				sb.WriteString(block.Get("text").String())
			}
			return true
		})
		return sb.String(), sb.Len() > 0
	default:
		return "", false
	}
}

func toolOutputs(r gjson.Result) []domain.ToolOutputEvent {
	if !r.IsArray() {
		return nil
	}
	var batch []domain.ToolOutputEvent
	r.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		batch = append(batch, domain.ToolOutputEvent{
			Name:       item.Get("name").String(),
			Content:    rawOrString(item.Get("content")),
			ToolCallID: item.Get("tool_call_id").String(),
			Status:     item.Get("status").String(),
		})
		return true
	})
	return batch
}

// rawOrString keeps structured tool content as its JSON text.
func rawOrString(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Null:
		return ""
	default:
		return r.Raw
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
