// Package schema resolves entity metadata from struct tags.
//
// An entity is a struct whose TableName method names its table and whose
// persisted fields carry an orm tag:
//
//	type Order struct {
//	    ID       int64     `orm:"id"`
//	    Total    *float64  `orm:"column"`
//	    Customer *Customer `orm:"many_to_one"`
//	    Tags     []*Tag    `orm:"many_to_many,join_table=order_tags"`
//	}
//
//	func (Order) TableName() string { return "orders" }
//
// # Tag Grammar
//
// The first element is the kind, followed by key=value options:
//
//	id            column=
//	column        column=
//	one_to_one    join_column= target= mapped_by=
//	many_to_one   join_column= target=
//	one_to_many   target= mapped_by=
//	many_to_many  join_table= join_column= inverse_join_column= target= mapped_by=
//
// Untagged fields and fields tagged "-" are not persisted.
//
// # Defaults
//
// Column names default to the snake_case field name (UserID => user_id).
// A reference column defaults to the singular target table joined with the
// target id column (customers.id => customer_id). Join table columns default
// to the referenced table joined with its id column (orders_id).
//
// # Caching
//
// Describe reads a type's own tags once and caches the descriptor for the
// process lifetime. Related types are described only when a resolver
// function needs them, so entity graphs may be cyclic.
package schema
