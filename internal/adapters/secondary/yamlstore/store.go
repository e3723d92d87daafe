// Package yamlstore persists the registry catalog as a human-editable YAML
// document nested by family, then version.
package yamlstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/ports/output"
)

// MetadataStore reads and writes one YAML metadata file.
type MetadataStore struct {
	path string
}

var _ ports.MetadataStore = (*MetadataStore)(nil)

func New(path string) *MetadataStore {
	return &MetadataStore{path: path}
}

func (s *MetadataStore) Location() string {
	return s.path
}

// Load reads the metadata file. A missing or blank file is an empty catalog.
func (s *MetadataStore) Load(ctx context.Context) (*domain.Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.NewCatalog(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrMetadataIO, s.path, err)
	}
	return Decode(data)
}

// Decode builds a catalog from a YAML document, keeping document order as
// insertion order.
func Decode(data []byte) (*domain.Catalog, error) {
	catalog := domain.NewCatalog()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMetadataDecode, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return catalog, nil
	}

	root := doc.Content[0]
	if isNull(root) {
		return catalog, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: top level must be a mapping of families", domain.ErrMetadataDecode, root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		family := root.Content[i].Value
		versions := root.Content[i+1]
		catalog.AddFamily(family)
		if isNull(versions) {
			continue
		}
		if versions.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: line %d: family %q must map versions to records", domain.ErrMetadataDecode, versions.Line, family)
		}

		for j := 0; j+1 < len(versions.Content); j += 2 {
			version := versions.Content[j].Value
			node := versions.Content[j+1]

			var rd recordDoc
			if err := node.Decode(&rd); err != nil {
				return nil, fmt.Errorf("%w: record %s: %w", domain.ErrMetadataDecode, domain.Key(family, version), err)
			}
			rec, err := rd.toDomain()
			if err != nil {
				return nil, fmt.Errorf("%w: record %s: %w", domain.ErrMetadataDecode, domain.Key(family, version), err)
			}
			if rec.Name != family || rec.Version != version {
				log.WithFields(log.Fields{
					"key":     domain.Key(family, version),
					"name":    rec.Name,
					"version": rec.Version,
				}).Warn("record fields disagree with document keys, using keys")
				rec.Name, rec.Version = family, version
			}
			catalog.Put(family, version, rec)
		}
	}
	return catalog, nil
}

// Encode renders the full catalog as YAML.
func Encode(catalog *domain.Catalog) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, family := range catalog.Families() {
		versions := &yaml.Node{Kind: yaml.MappingNode}
		for _, version := range catalog.Versions(family) {
			rec, _ := catalog.Record(family, version)
			var node yaml.Node
			if err := node.Encode(fromDomain(rec)); err != nil {
				return nil, fmt.Errorf("encode record %s: %w", domain.Key(family, version), err)
			}
			versions.Content = append(versions.Content, keyNode(version), &node)
		}
		root.Content = append(root.Content, keyNode(family), versions)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// Save rewrites the whole file through a temporary file and a rename, so a
// failed write never truncates the previous state.
func (s *MetadataStore) Save(ctx context.Context, catalog *domain.Catalog) error {
	data, err := Encode(catalog)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMetadataIO, err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrMetadataIO, s.path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func keyNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}
