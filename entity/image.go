package entity

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ImagePlaceholder describes an inline data URI without its payload. Other
// values are returned unchanged.
func ImagePlaceholder(ref string) string {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return ref
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ref
	}
	mimeType, _, _ := strings.Cut(meta, ";")
	size := len(payload)
	if strings.HasSuffix(meta, ";base64") {
		size = base64.StdEncoding.DecodedLen(len(payload))
	}
	return fmt.Sprintf("[image %s, %d bytes]", mimeType, size)
}

// RedactImages returns a copy of v with every data URI replaced by its
// placeholder. It walks maps and slices as decoded from JSON.
func RedactImages(v any) any {
	switch t := v.(type) {
	case string:
		return ImagePlaceholder(t)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = ImagePlaceholder(s)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = RedactImages(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = RedactImages(item)
		}
		return out
	}
	return v
}

// PromptDocument is Document with image payloads replaced by placeholders.
func (d *Draft) PromptDocument() ([]byte, error) {
	c := d.Clone()
	if c == nil {
		return nil, fmt.Errorf("draft cannot be copied")
	}
	if u := c.Universe; u != nil {
		u.CoverImage = ImagePlaceholder(u.CoverImage)
		for i, loc := range u.Locations {
			u.Locations[i] = ImagePlaceholder(loc)
		}
	}
	if ch := c.Character; ch != nil {
		ch.Avatar = ImagePlaceholder(ch.Avatar)
	}
	return c.Document()
}
