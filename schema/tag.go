package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/relmap/schema/edge"
)

// TagName is the struct tag read by the resolver.
const TagName = "orm"

// Tag kinds.
const (
	TagID         = "id"
	TagColumn     = "column"
	TagOneToOne   = "one_to_one"
	TagManyToOne  = "many_to_one"
	TagOneToMany  = "one_to_many"
	TagManyToMany = "many_to_many"
)

// Tag option keys.
const (
	OptColumn            = "column"
	OptJoinColumn        = "join_column"
	OptInverseJoinColumn = "inverse_join_column"
	OptJoinTable         = "join_table"
	OptTarget            = "target"
	OptMappedBy          = "mapped_by"
)

// allowed lists the option keys each kind accepts.
var allowed = map[string][]string{
	TagID:         {OptColumn},
	TagColumn:     {OptColumn},
	TagOneToOne:   {OptJoinColumn, OptTarget, OptMappedBy},
	TagManyToOne:  {OptJoinColumn, OptTarget},
	TagOneToMany:  {OptTarget, OptMappedBy},
	TagManyToMany: {OptJoinTable, OptJoinColumn, OptInverseJoinColumn, OptTarget, OptMappedBy},
}

type tag struct {
	kind string
	opts map[string]string
}

func (t tag) rel() edge.Rel { return edge.FromTag(t.kind) }

// parseTag parses `kind[,key=value]...`.
func parseTag(s string) (tag, error) {
	parts := strings.Split(s, ",")
	t := tag{kind: strings.TrimSpace(parts[0]), opts: make(map[string]string, len(parts)-1)}
	keys, ok := allowed[t.kind]
	if !ok {
		return t, fmt.Errorf("unknown tag kind %q", t.kind)
	}
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return t, fmt.Errorf("malformed tag option %q", p)
		}
		if !slices.Contains(keys, k) {
			return t, fmt.Errorf("option %q is not valid for %s", k, t.kind)
		}
		if _, dup := t.opts[k]; dup {
			return t, fmt.Errorf("duplicate tag option %q", k)
		}
		t.opts[k] = v
	}
	return t, nil
}
