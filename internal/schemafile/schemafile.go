// Package schemafile loads table definitions from YAML schema files.
//
//	tables:
//	  - name: users
//	    primary_key: [id]
//	    columns:
//	      - {name: id, type: int64, increment: true}
//	      - {name: name, type: string, size: 64}
//	      - {name: settings, type: string, nullable: true, sql_type: json}
//	    indexes:
//	      - {name: users_name, unique: true, columns: [name]}
//	  - name: pets
//	    primary_key: [id]
//	    columns:
//	      - {name: id, type: int64, increment: true}
//	      - {name: owner_id, type: int64}
//	    foreign_keys:
//	      - name: pets_owner
//	        columns: [owner_id]
//	        references: {table: users, columns: [id]}
package schemafile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/schema/field"
)

type (
	fileDef struct {
		Tables []tableDef `yaml:"tables"`
	}
	tableDef struct {
		Name        string      `yaml:"name"`
		Columns     []columnDef `yaml:"columns"`
		PrimaryKey  []string    `yaml:"primary_key"`
		Indexes     []indexDef  `yaml:"indexes"`
		ForeignKeys []fkDef     `yaml:"foreign_keys"`
	}
	columnDef struct {
		Name      string `yaml:"name"`
		Type      string `yaml:"type"`
		Size      int64  `yaml:"size"`
		Nullable  bool   `yaml:"nullable"`
		Increment bool   `yaml:"increment"`
		SQLType   string `yaml:"sql_type"`
	}
	indexDef struct {
		Name    string   `yaml:"name"`
		Unique  bool     `yaml:"unique"`
		Columns []string `yaml:"columns"`
	}
	fkDef struct {
		Name       string   `yaml:"name"`
		Columns    []string `yaml:"columns"`
		References struct {
			Table   string   `yaml:"table"`
			Columns []string `yaml:"columns"`
		} `yaml:"references"`
	}
)

// File is a loaded schema file.
type File struct {
	Tables []*schema.Table
	// SQLTypes holds the explicit SQL types of columns declaring sql_type.
	SQLTypes map[*schema.Column]string
}

// Apply registers the explicit column types of the file in r.
func (f *File) Apply(r *schema.TypeRegistry) {
	for c, t := range f.SQLTypes {
		r.PutColumn(c, t)
	}
}

// Validate validates the tables of the file, checking column types against
// n when it is not nil.
func (f *File) Validate(n schema.TypeNamer) *schema.ValidationResult {
	var opts []schema.ValidateOption
	if n != nil {
		opts = append(opts, schema.WithTypeNamer(n))
	}
	return schema.ValidateSchema(f.Tables, opts...)
}

// Open loads the schema file at path.
func Open(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := Load(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Load reads a schema file. Unknown fields, unknown types and references
// to undefined tables or columns are configuration errors.
func Load(r io.Reader) (*File, error) {
	var def fileDef
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, signet.NewConfigError("schema file is empty")
		}
		return nil, signet.NewConfigError("parse schema file: %v", err)
	}
	f := &File{SQLTypes: make(map[*schema.Column]string)}
	tables := make(map[string]*schema.Table, len(def.Tables))
	for _, td := range def.Tables {
		t, err := f.table(td)
		if err != nil {
			return nil, err
		}
		if _, ok := tables[schema.Fold(t.Name)]; ok {
			return nil, signet.NewConfigError("table %s defined twice", t.Name)
		}
		tables[schema.Fold(t.Name)] = t
		f.Tables = append(f.Tables, t)
	}
	// Foreign keys may reference tables defined later in the file.
	for i, td := range def.Tables {
		for _, fd := range td.ForeignKeys {
			if err := foreignKey(f.Tables[i], tables, fd); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func (f *File) table(td tableDef) (*schema.Table, error) {
	if td.Name == "" {
		return nil, signet.NewConfigError("table without name")
	}
	t := schema.NewTable(td.Name)
	for _, cd := range td.Columns {
		typ, ok := field.ParseType(cd.Type)
		if !ok {
			return nil, signet.NewConfigError("table %s: column %s has unknown type %q", td.Name, cd.Name, cd.Type)
		}
		c, err := t.AddColumn(&schema.Column{
			Name:      cd.Name,
			Type:      typ,
			Size:      cd.Size,
			Nullable:  cd.Nullable,
			Increment: cd.Increment,
		})
		if err != nil {
			return nil, err
		}
		if cd.SQLType != "" {
			f.SQLTypes[c] = cd.SQLType
		}
	}
	if len(td.PrimaryKey) > 0 {
		cols, err := columns(t, td.PrimaryKey)
		if err != nil {
			return nil, err
		}
		if err := t.SetPrimaryKey(cols...); err != nil {
			return nil, err
		}
	}
	for _, id := range td.Indexes {
		cols, err := columns(t, id.Columns)
		if err != nil {
			return nil, err
		}
		if _, err := t.AddIndex(id.Name, id.Unique, cols...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func foreignKey(t *schema.Table, tables map[string]*schema.Table, fd fkDef) error {
	ref, ok := tables[schema.Fold(fd.References.Table)]
	if !ok {
		return signet.NewConfigError("table %s: foreign key %s references unknown table %q", t.Name, fd.Name, fd.References.Table)
	}
	cols, err := columns(t, fd.Columns)
	if err != nil {
		return err
	}
	refCols, err := columns(ref, fd.References.Columns)
	if err != nil {
		return err
	}
	_, err = t.AddForeignKey(fd.Name, cols, refCols)
	return err
}

func columns(t *schema.Table, names []string) ([]*schema.Column, error) {
	cols := make([]*schema.Column, 0, len(names))
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, signet.NewConfigError("table %s has no column %q", t.Name, name)
		}
		cols = append(cols, c)
	}
	return cols, nil
}
