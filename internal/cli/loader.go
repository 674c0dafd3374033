package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docsql/internal/conn"
	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/store"
)

// schemaFile is the YAML shape of a collection schema:
//
//	database: heroes-db
//	collection: heroes
//	fields:
//	  - name: id
//	    type: [string]
//	    primaryKey: true
//	    maxLength: 100
//	  - name: age
//	    type: [integer, "null"]
type schemaFile struct {
	Database   string      `yaml:"database"`
	Collection string      `yaml:"collection"`
	Fields     []fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Name       string   `yaml:"name"`
	Type       []string `yaml:"type"`
	PrimaryKey bool     `yaml:"primaryKey"`
	MaxLength  int      `yaml:"maxLength"`
}

// loadSchemaFile parses a YAML schema file into a Schema plus the
// database and collection names it declares.
func loadSchemaFile(path string) (*schema.Schema, string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", "", fmt.Errorf("read schema file: %w", err)
	}

	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, "", "", fmt.Errorf("parse schema file %s: %w", path, err)
	}
	if sf.Database == "" {
		return nil, "", "", fmt.Errorf("schema file %s: missing database name", path)
	}
	if sf.Collection == "" {
		return nil, "", "", fmt.Errorf("schema file %s: missing collection name", path)
	}

	fields := make([]schema.Field, 0, len(sf.Fields))
	for _, fs := range sf.Fields {
		desc, err := schema.DescriptorFromTypeSet(fs.Name, fs.Type)
		if err != nil {
			return nil, "", "", err
		}
		desc.PrimaryKey = fs.PrimaryKey
		desc.MaxLength = fs.MaxLength
		fields = append(fields, schema.Field{Name: fs.Name, Descriptor: desc})
	}

	s, err := schema.New(fields)
	if err != nil {
		return nil, "", "", err
	}
	return s, sf.Database, sf.Collection, nil
}

// openCollection loads the schema file and opens an initialized
// collection on the database file. The caller must Close it.
func openCollection(opts *RootOptions) (*store.Collection, *conn.Registry, error) {
	if opts.DBPath == "" {
		return nil, nil, fmt.Errorf("--db is required")
	}
	if opts.SchemaPath == "" {
		return nil, nil, fmt.Errorf("--schema is required")
	}

	s, database, collection, err := loadSchemaFile(opts.SchemaPath)
	if err != nil {
		return nil, nil, err
	}

	reg := conn.NewRegistry()
	col, err := store.Open(reg, database, opts.DBPath, collection, s)
	if err != nil {
		return nil, nil, err
	}
	return col, reg, nil
}
