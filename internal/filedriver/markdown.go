// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package filedriver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"orbit/internal/markdown"
)

const frontMatterDelim = "---"

// MarkdownDriver stores content as Markdown with an optional leading
// front-matter block of flat key: value pairs.
type MarkdownDriver struct{}

var _ Driver = MarkdownDriver{}

func (MarkdownDriver) Name() string      { return "markdown" }
func (MarkdownDriver) Extension() string { return "md" }

func (MarkdownDriver) Exists(path string) bool { return exists(path) }

func (MarkdownDriver) Read(path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	meta, body := ParseFrontMatter(data)
	return &Document{Meta: meta, Content: body}, nil
}

func (MarkdownDriver) Write(path string, doc *Document) error {
	data, err := FormatFrontMatter(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeAtomic(path, data)
}

func (MarkdownDriver) Delete(path string) error { return remove(path) }

// Normalize applies the line ending, leading blank line and trailing
// newline rules of the front-matter format.
func (MarkdownDriver) Normalize(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimLeft(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content
}

func (MarkdownDriver) Render(content string) (string, error) {
	return markdown.ToHTML(content)
}

// ParseFrontMatter splits raw file bytes into the metadata block and the
// body. The block must start on the first line with "---" and end with a
// line containing only "---". YAML is tried first; if the block is not a
// valid YAML mapping the simple "key: value" line parser is used instead.
// Without a block the whole input is body and meta is an empty map.
func ParseFrontMatter(data []byte) (map[string]any, string) {
	meta := map[string]any{}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	if !strings.HasPrefix(text, frontMatterDelim+"\n") {
		return meta, text
	}
	rest := text[len(frontMatterDelim)+1:]

	var block, body string
	switch {
	case strings.HasPrefix(rest, frontMatterDelim+"\n"):
		body = rest[len(frontMatterDelim)+1:]
	case rest == frontMatterDelim:
	default:
		end := strings.Index(rest, "\n"+frontMatterDelim+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+frontMatterDelim) {
				// unterminated block: treat everything as body
				return meta, text
			}
			end = len(rest) - len(frontMatterDelim) - 1
			block = rest[:end]
		} else {
			block = rest[:end]
			body = rest[end+len(frontMatterDelim)+2:]
		}
	}

	if parsed, ok := parseYAMLBlock(block); ok {
		meta = parsed
	} else {
		meta = parseScalarBlock(block)
	}
	return meta, strings.TrimLeft(body, "\n")
}

func parseYAMLBlock(block string) (map[string]any, bool) {
	if strings.TrimSpace(block) == "" {
		return map[string]any{}, true
	}
	var out map[string]any
	if err := yaml.Unmarshal([]byte(block), &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// parseScalarBlock reads `key: "value"` or `key: value` lines. Lines
// without a colon are skipped.
func parseScalarBlock(block string) map[string]any {
	out := map[string]any{}
	scanner := bufio.NewScanner(strings.NewReader(block))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = unquote(strings.TrimSpace(value))
	}
	return out
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			if s, err := strconv.Unquote(`"` + v[1:len(v)-1] + `"`); err == nil {
				return s
			}
			return v[1 : len(v)-1]
		}
	}
	return v
}

// FormatFrontMatter encodes a document as front-matter plus body. Keys are
// written in sorted order as scalars: lists of scalars become a
// comma-separated string and nested maps a JSON string, so the block stays
// readable by the simple line parser.
func FormatFrontMatter(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if len(doc.Meta) > 0 {
		keys := make([]string, 0, len(doc.Meta))
		for k := range doc.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteString(frontMatterDelim + "\n")
		for _, k := range keys {
			value, err := flatten(doc.Meta[k])
			if err != nil {
				return nil, fmt.Errorf("meta %q: %w", k, err)
			}
			line, err := yaml.Marshal(map[string]any{k: value})
			if err != nil {
				return nil, fmt.Errorf("meta %q: %w", k, err)
			}
			buf.Write(line)
		}
		buf.WriteString(frontMatterDelim + "\n")
	}
	buf.WriteString(doc.Content)
	if doc.Content != "" && !strings.HasSuffix(doc.Content, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func flatten(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int, int64, float64:
		return t, nil
	case time.Time:
		return t.UTC().Format(time.RFC3339), nil
	case []string:
		return strings.Join(t, ", "), nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", "), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}
