package schema

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

var rules = inflect.NewDefaultRuleset()

// snake converts the given struct or field name into a snake_case.
//
//	Username => username
//	FullName => full_name
//	UserID   => user_id
//	HTTPCode => http_code
func snake(s string) string {
	var (
		j  int
		b  strings.Builder
		rs = []rune(s)
	)
	for i, r := range rs {
		// Put '_' if it is not a start or end of a word, current letter is uppercase,
		// and previous is lowercase (cases like: "UserInfo"), or next letter is also
		// a lowercase and previous letter is not "_".
		if i > 0 && i < len(rs)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rs[i-1]) ||
				j != i-1 && unicode.IsLower(rs[i+1]) && unicode.IsLetter(rs[i-1]) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// foreignKey returns the default foreign key column pointing at a table,
// e.g. ("customers", "id") => customer_id.
func foreignKey(table, idColumn string) string {
	return rules.Singularize(table) + "_" + idColumn
}
