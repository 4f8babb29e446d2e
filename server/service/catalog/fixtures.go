package catalog

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hrygo/decorchat/store"
)

// fixtureFile is the layout of a catalog fixture document.
type fixtureFile struct {
	Items []*store.CatalogItem `yaml:"items"`
}

// LoadFixtures decodes and validates the items of a YAML fixture document.
func LoadFixtures(r io.Reader) ([]*store.CatalogItem, error) {
	var doc fixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("fixture file is empty")
		}
		return nil, errors.Wrap(err, "failed to decode fixtures")
	}
	for _, item := range doc.Items {
		if err := Validate(item); err != nil {
			return nil, err
		}
	}
	return doc.Items, nil
}

// LoadFixtureFile opens path and decodes it with LoadFixtures.
func LoadFixtureFile(path string) ([]*store.CatalogItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open fixture file %s", path)
	}
	defer f.Close()
	return LoadFixtures(f)
}
