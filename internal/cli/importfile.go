package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"todopanel/internal/storage"
)

type importDocument struct {
	Todos []storage.Item `json:"todos" yaml:"todos"`
}

func readImportFile(path string) ([]storage.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var items []storage.Item
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		items, err = parseJSONImport(data)
	case ".yaml", ".yml":
		items, err = parseYAMLImport(data)
	default:
		return nil, fmt.Errorf("unsupported import format %q (want .json, .yaml or .yml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if items == nil {
		items = []storage.Item{}
	}
	return items, nil
}

func parseJSONImport(data []byte) ([]storage.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []storage.Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var doc importDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return doc.Todos, nil
}

func parseYAMLImport(data []byte) ([]storage.Item, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var items []storage.Item
		if err := node.Decode(&items); err != nil {
			return nil, err
		}
		return items, nil
	case yaml.MappingNode:
		var doc importDocument
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		return doc.Todos, nil
	default:
		return nil, errors.New("expected a list of todos or a document with a todos key")
	}
}
