// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package filedriver

import (
	"encoding/json"
	"fmt"

	"orbit/internal/markdown"
)

// JSONDriver stores content as a JSON object with "meta" and "content"
// keys. The content field still holds Markdown.
type JSONDriver struct{}

var _ Driver = JSONDriver{}

func (JSONDriver) Name() string      { return "json" }
func (JSONDriver) Extension() string { return "json" }

func (JSONDriver) Exists(path string) bool { return exists(path) }

func (JSONDriver) Read(path string) (*Document, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if doc.Meta == nil {
		doc.Meta = map[string]any{}
	}
	return &doc, nil
}

func (JSONDriver) Write(path string, doc *Document) error {
	out := Document{Meta: doc.Meta, Content: doc.Content}
	if out.Meta == nil {
		out.Meta = map[string]any{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func (JSONDriver) Delete(path string) error { return remove(path) }

func (JSONDriver) Normalize(content string) string { return content }

func (JSONDriver) Render(content string) (string, error) {
	return markdown.ToHTML(content)
}
