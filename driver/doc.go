// Package driver exposes the query engine through database/sql.
//
// Importing the package registers a driver named "qoq". Connections read
// from a query.Environment and accept only SELECT statements with
// positional ? parameters:
//
//	catalog := query.NewCatalog()
//	catalog.Register("users", users)
//
//	db := sql.OpenDB(driver.NewConnector(catalog))
//	rows, err := db.QueryContext(ctx, "SELECT name FROM users WHERE age > ?", 30)
//
// A catalog may also be registered under a name and opened by DSN:
//
//	driver.RegisterCatalog("reports", catalog)
//	db, err := sql.Open("qoq", "reports")
//
// Statements are executed in memory and hold no locks, so there are no
// transactions. A query whose context ends before execution finishes
// returns the context error at once; the abandoned execution finishes in
// the background and its result is discarded.
package driver
