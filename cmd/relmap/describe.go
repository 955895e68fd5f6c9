package main

import (
	"io"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/syssam/relmap/schema"
	"github.com/syssam/relmap/schema/edge"
)

type entityView struct {
	Type      string         `yaml:"type"`
	Table     string         `yaml:"table"`
	ID        string         `yaml:"id"`
	Columns   []string       `yaml:"columns"`
	Relations []relationView `yaml:"relations,omitempty"`
}

type relationView struct {
	Field     string         `yaml:"field"`
	Kind      string         `yaml:"kind"`
	Target    string         `yaml:"target"`
	Column    string         `yaml:"column,omitempty"`
	MappedBy  string         `yaml:"mapped_by,omitempty"`
	JoinTable *joinTableView `yaml:"join_table,omitempty"`
}

type joinTableView struct {
	Name              string `yaml:"name"`
	JoinColumn        string `yaml:"join_column"`
	InverseJoinColumn string `yaml:"inverse_join_column"`
}

// describe writes the resolved mapping of every entity as a YAML stream.
func describe(w io.Writer, entities ...any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, e := range entities {
		view, err := viewOf(reflect.TypeOf(e))
		if err != nil {
			return err
		}
		if err := enc.Encode(view); err != nil {
			return err
		}
	}
	return enc.Close()
}

func viewOf(t reflect.Type) (*entityView, error) {
	d, err := schema.Describe(t)
	if err != nil {
		return nil, err
	}
	id, err := schema.IDColumnName(t)
	if err != nil {
		return nil, err
	}
	view := &entityView{Type: d.Name(), Table: d.Table, ID: id}
	for _, f := range d.Columns() {
		name, err := schema.ColumnName(f)
		if err != nil {
			return nil, err
		}
		view.Columns = append(view.Columns, name)
	}
	for _, f := range d.Fields {
		if f.Kind != schema.KindRelation {
			continue
		}
		target, err := schema.TargetEntity(f)
		if err != nil {
			return nil, err
		}
		rv := relationView{Field: f.Name, Kind: f.Rel.Tag(), Target: target.Name(), MappedBy: f.MappedBy()}
		if f.IsReference() {
			if rv.Column, err = schema.ColumnName(f); err != nil {
				return nil, err
			}
		}
		if f.Rel == edge.M2M {
			jt, err := schema.JoinTable(f)
			if err != nil {
				return nil, err
			}
			rv.JoinTable = &joinTableView{Name: jt.Name, JoinColumn: jt.JoinColumn, InverseJoinColumn: jt.InverseJoinColumn}
		}
		view.Relations = append(view.Relations, rv)
	}
	return view, nil
}
