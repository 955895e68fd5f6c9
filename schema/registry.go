package schema

import (
	"reflect"
	"sync"
)

// registry maps entity names used in target= tag options to types.
var registry sync.Map

// Register makes entities addressable by their Go type name in the target
// option of a relation tag. Values may be structs or struct pointers.
//
//	schema.Register(Customer{}, Order{}, Tag{})
func Register(entities ...any) {
	for _, e := range entities {
		t := indirect(reflect.TypeOf(e))
		registry.Store(t.Name(), t)
	}
}

// RegisterName registers an entity under an explicit name.
func RegisterName(name string, entity any) {
	registry.Store(name, indirect(reflect.TypeOf(entity)))
}

// Lookup returns the entity type registered under name.
func Lookup(name string) (reflect.Type, bool) {
	v, ok := registry.Load(name)
	if !ok {
		return nil, false
	}
	return v.(reflect.Type), true
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
