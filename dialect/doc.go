// Package dialect names the supported database dialects and defines the
// driver contracts the rest of relmap is written against.
//
// # Supported Dialects
//
//	dialect.Postgres = "postgres"  // github.com/lib/pq
//	dialect.MySQL    = "mysql"     // github.com/go-sql-driver/mysql
//	dialect.SQLite   = "sqlite"    // modernc.org/sqlite
//
// relmap renders literal SQL text, so a dialect only decides which
// database/sql driver is opened and how session variables are reset; the
// generated statements are the same for all of them.
//
// # Usage
//
//	drv, err := sql.Open(dialect.SQLite, "file:app.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	client := repo.NewClient(sql.NewTxExecutor(drv))
//
// The dialect/sql sub-package implements Driver over database/sql and
// provides the transactional executor used by the repository.
package dialect
