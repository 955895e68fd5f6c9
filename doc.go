// Package relmap is a tag-driven object-relational mapping helper.
//
// Entities are plain Go structs. A type names its table through a
// TableName method and describes its columns and relations with the
// orm struct tag:
//
//	type Order struct {
//	    ID       int       `orm:"id"`
//	    Total    *float64  `orm:"column"`
//	    Customer *Customer `orm:"many_to_one,join_column=customer_id"`
//	    Tags     []*Tag    `orm:"many_to_many,join_table=order_tags,join_column=order_id,inverse_join_column=tag_id"`
//	}
//
//	func (Order) TableName() string { return "orders" }
//
// The work is split across sub-packages:
//
//   - schema: resolves and caches entity descriptors from struct tags
//   - builder: renders literal SQL text for insert, update, delete and select
//   - materialize: turns result rows into entity values
//   - repo: the repository facade (save, update, remove, find) and relation loading
//   - dialect/sql: the database/sql driver and the transactional executor
//
// This package holds the error taxonomy shared by all of them. Configuration
// errors (IsConfigError) are fatal for the type that caused them; data errors
// and execution failures degrade to absent results in the repository.
package relmap
