// Package edge defines the relation kinds an entity field can declare.
//
// # Relation Types
//
// A relation is declared with the orm struct tag on the field that holds it:
//
//	// Many-to-One: Order belongs to Customer (orders.customer_id)
//	Customer *Customer `orm:"many_to_one"`
//
//	// One-to-Many: Customer has many Orders, resolved through Order.Customer
//	Orders []*Order `orm:"one_to_many"`
//
//	// One-to-One: the owning side carries the foreign key column
//	Invoice *Invoice `orm:"one_to_one,join_column=invoice_id"`
//
//	// One-to-One inverse: no column, resolved through Invoice.Order
//	Order *Order `orm:"one_to_one,mapped_by=Invoice"`
//
//	// Many-to-Many: owning side declares the join table
//	Tags []*Tag `orm:"many_to_many,join_table=order_tags"`
//
//	// Many-to-Many inverse: reuses the owning side's join table
//	Orders []*Order `orm:"many_to_many,mapped_by=Tags"`
//
// O2O and M2O relations are stored as a foreign key column on the declaring
// table. O2M relations are read from the target table's M2O column. M2M
// relations go through a join table holding one column per side.
package edge
