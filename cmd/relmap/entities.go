package main

import (
	"github.com/google/uuid"

	"github.com/syssam/relmap/schema"
)

type (
	// Customer places orders.
	Customer struct {
		ID     int64    `orm:"id"`
		Name   string   `orm:"column"`
		Orders []*Order `orm:"one_to_many"`
	}

	// Order belongs to a customer and carries tags.
	Order struct {
		ID       int64     `orm:"id"`
		Total    *float64  `orm:"column"`
		Customer *Customer `orm:"many_to_one"`
		Tags     []*Tag    `orm:"many_to_many,join_table=order_tags"`
	}

	// Tag is keyed by a UUID stored as text.
	Tag struct {
		ID     uuid.UUID `orm:"id,column=tag_id"`
		Name   string    `orm:"column"`
		Orders []*Order  `orm:"many_to_many,mapped_by=Tags,target=Order"`
	}
)

func (Customer) TableName() string { return "customers" }
func (Order) TableName() string    { return "orders" }
func (*Tag) TableName() string     { return "tags" }

var entities = []any{Customer{}, Order{}, Tag{}}

func init() {
	schema.Register(entities...)
}

// ddl creates the demo tables. The statements are valid for SQLite,
// Postgres and MySQL.
var ddl = []string{
	"CREATE TABLE IF NOT EXISTS customers (id BIGINT PRIMARY KEY, name VARCHAR(255) NOT NULL)",
	"CREATE TABLE IF NOT EXISTS orders (id BIGINT PRIMARY KEY, total DOUBLE PRECISION, customer_id BIGINT REFERENCES customers(id))",
	"CREATE TABLE IF NOT EXISTS tags (tag_id VARCHAR(36) PRIMARY KEY, name VARCHAR(255) NOT NULL)",
	"CREATE TABLE IF NOT EXISTS order_tags (orders_id BIGINT NOT NULL, tags_tag_id VARCHAR(36) NOT NULL)",
}
