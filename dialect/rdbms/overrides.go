package rdbms

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect"
)

// Overrides holds settings overrides keyed by vendor name.
//
// The YAML form is:
//
//	vendors:
//	  mysql:
//	    max_in_list_size: 500
//	    keywords: [rank]
//	    generated_key_column: id
//	    retry:
//	      max_retries: 5
//	      delay: 250ms
type Overrides map[string]Override

// Override overrides some settings of a vendor. Nil fields keep the vendor
// default.
type Override struct {
	MaxInListSize      *int           `yaml:"max_in_list_size"`
	Keywords           []string       `yaml:"keywords"` // Added to the vendor keywords.
	GeneratedKeyColumn *string        `yaml:"generated_key_column"`
	Retry              *RetryOverride `yaml:"retry"`
}

// RetryOverride overrides the retry policy of a vendor.
type RetryOverride struct {
	MaxRetries *int      `yaml:"max_retries"`
	Delay      *Duration `yaml:"delay"`
}

// Duration is a time.Duration in Go syntax, e.g. "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return signet.NewConfigError("line %d: invalid duration %q", n.Line, n.Value)
	}
	*d = Duration(v)
	return nil
}

// LoadOverrides reads settings overrides in YAML form. Unknown vendors,
// unknown fields and invalid values are configuration errors.
func LoadOverrides(r io.Reader) (Overrides, error) {
	var file struct {
		Vendors map[string]Override `yaml:"vendors"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		if signet.IsConfigError(err) {
			return nil, err
		}
		return nil, signet.NewConfigError("parse overrides: %v", err)
	}
	o := make(Overrides, len(file.Vendors))
	for name, v := range file.Vendors {
		vendor, ok := VendorName(name)
		if !ok {
			return nil, signet.NewConfigError("overrides: unknown vendor %q", name)
		}
		if err := v.validate(); err != nil {
			return nil, signet.NewConfigError("overrides for %s: %v", name, err)
		}
		o[vendor] = v
	}
	return o, nil
}

// For returns the override of the vendor.
func (o Overrides) For(vendor string) (Override, bool) {
	v, ok := o[vendor]
	return v, ok
}

func (o Override) validate() error {
	switch {
	case o.MaxInListSize != nil && *o.MaxInListSize < 1:
		return fmt.Errorf("max_in_list_size must be at least 1, got %d", *o.MaxInListSize)
	case o.Retry == nil:
		return nil
	case o.Retry.MaxRetries != nil && *o.Retry.MaxRetries < 0:
		return fmt.Errorf("retry.max_retries must not be negative, got %d", *o.Retry.MaxRetries)
	case o.Retry.Delay != nil && *o.Retry.Delay < 0:
		return fmt.Errorf("retry.delay must not be negative, got %s", time.Duration(*o.Retry.Delay))
	}
	return nil
}

// Apply returns a copy of s with the override applied.
func (o Override) Apply(s Settings) (Settings, error) {
	s = s.clone()
	if o.MaxInListSize != nil {
		var err error
		if s, err = s.WithMaxInListSize(*o.MaxInListSize); err != nil {
			return s, err
		}
	}
	s.Keywords = append(s.Keywords, o.Keywords...)
	if o.GeneratedKeyColumn != nil {
		s.GeneratedKeyColumn = *o.GeneratedKeyColumn
	}
	if o.Retry != nil {
		if o.Retry.MaxRetries != nil {
			s.Retry.MaxRetries = *o.Retry.MaxRetries
		}
		if o.Retry.Delay != nil {
			s.Retry.Delay = time.Duration(*o.Retry.Delay)
		}
	}
	return s, s.Validate()
}

// VendorName returns the vendor name matching name case-insensitively.
// database/sql driver names are accepted as well, e.g. "pgx".
func VendorName(name string) (string, bool) {
	for _, v := range []string{dialect.MySQL, dialect.MariaDB, dialect.Postgres, dialect.SQLite} {
		if strings.EqualFold(v, name) {
			return v, true
		}
	}
	return dialect.VendorOf(name)
}
