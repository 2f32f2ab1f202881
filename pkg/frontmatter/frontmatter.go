// Package frontmatter splits a stored file into its YAML metadata block and
// body, and joins them back for writing.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	Delimiter = "---"

	openFence  = Delimiter + "\n"
	closeFence = "\n" + Delimiter + "\n"
)

// ErrMalformed indicates a fenced block that is not a YAML mapping.
var ErrMalformed = errors.New("frontmatter: malformed metadata block")

// Split returns the metadata and body of raw. Text without a fenced block,
// or with a block that does not parse, yields empty metadata and raw as body.
func Split(raw string) (map[string]interface{}, string) {
	meta, body, err := SplitStrict(raw)
	if err != nil {
		return map[string]interface{}{}, raw
	}
	return meta, body
}

// SplitStrict is Split but reports a block that fails to parse. Text
// without a fenced block is not an error.
func SplitStrict(raw string) (map[string]interface{}, string, error) {
	text := raw
	if strings.HasPrefix(text, Delimiter+"\r\n") {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	block, body, ok := cut(text)
	if !ok {
		return map[string]interface{}{}, raw, nil
	}

	var meta map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return map[string]interface{}{}, raw, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return meta, body, nil
}

// HasFrontMatter reports whether raw starts with a complete fenced block.
func HasFrontMatter(raw string) bool {
	_, _, ok := cut(strings.ReplaceAll(raw, "\r\n", "\n"))
	return ok
}

// cut matches the first "---\n<block>\n---\n" at the start of text.
func cut(text string) (block, body string, ok bool) {
	if !strings.HasPrefix(text, openFence) {
		return "", "", false
	}
	rest := text[len(openFence):]
	// idx is 0 for an empty block.
	idx := strings.Index(rest, closeFence)
	if idx < 0 {
		return "", "", false
	}
	// The newline before the closing fence ends the block's last line;
	// a trailing block scalar needs it.
	return rest[:idx+1], rest[idx+len(closeFence):], true
}

// Join renders metadata between fences followed by the body verbatim.
func Join(meta map[string]interface{}, body string) (string, error) {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	var buf bytes.Buffer
	buf.WriteString(openFence)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("frontmatter: encode metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("frontmatter: encode metadata: %w", err)
	}

	buf.WriteString(Delimiter + "\n")
	buf.WriteString(body)
	return buf.String(), nil
}
