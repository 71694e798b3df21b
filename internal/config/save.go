package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keys lists every dotted key accepted by SaveKey.
var Keys = []string{
	"project_dir",
	"output_dir",
	"executable",
	"timeout",
	"android.mode",
	"android.flavor",
	"android.target_platforms",
	"android.clean",
	"ios.scheme",
	"ios.workspace",
	"ios.configuration",
	"ios.export_method",
	"ios.clean",
	"history.enabled",
	"history.path",
	"tracing.enabled",
	"tracing.exporter",
	"tracing.file_path",
	"tracing.otlp_endpoint",
	"tracing.sample_rate",
	"watch.debounce",
	"watch.paths",
}

// listKeys take a comma-separated value and are written as YAML sequences.
var listKeys = []string{"android.target_platforms", "watch.paths"}

// SaveKey sets a single dotted key (e.g. "android.flavor") in the config file.
// This preserves comments and formatting in other sections by using yaml.Node.
func SaveKey(configPath, key, value string) error {
	if !slices.Contains(Keys, key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: top level is not a mapping")
	}

	parts := strings.Split(key, ".")
	mapping := doc.Content[0]
	for _, section := range parts[:len(parts)-1] {
		mapping, err = childMapping(mapping, section)
		if err != nil {
			return err
		}
	}
	setValue(mapping, parts[len(parts)-1], valueNode(key, value))

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// childMapping returns the mapping stored under name, creating it if absent.
func childMapping(parent *yaml.Node, name string) (*yaml.Node, error) {
	for i := 0; i < len(parent.Content)-1; i += 2 {
		if parent.Content[i].Value != name {
			continue
		}
		child := parent.Content[i+1]
		if child.Kind == yaml.ScalarNode && child.Tag == "!!null" {
			child.Kind = yaml.MappingNode
			child.Tag = ""
			child.Value = ""
		}
		if child.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("config key %q is not a section", name)
		}
		return child, nil
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	parent.Content = append(parent.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: name},
		child,
	)
	return child, nil
}

// setValue replaces the value under name in mapping, or appends it.
func setValue(mapping *yaml.Node, name string, value *yaml.Node) {
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value == name {
			// Keep the trailing comment attached to the old value.
			value.LineComment = mapping.Content[i+1].LineComment
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: name},
		value,
	)
}

func valueNode(key, value string) *yaml.Node {
	if !slices.Contains(listKeys, key) {
		return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: item})
		}
	}
	return seq
}

// writeAtomic writes to a temp file beside path, then renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".mobuild.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
