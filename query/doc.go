// Package query implements an in-process SQL SELECT engine over in-memory
// relations.
//
// Statements are parsed into a closed set of AST node types, then executed
// against an Environment that maps table names to *relation.Relation values.
// The result of every statement is a fresh relation; inputs are never
// modified.
//
// # Basic Usage
//
//	catalog := query.NewCatalog()
//	catalog.Register("users", users)
//
//	result, err := query.DefaultEngine().Query(ctx, catalog,
//	    "SELECT name FROM users WHERE age > ? ORDER BY name", 30)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Parse and ExecuteStatement can be used separately when a statement is run
// more than once:
//
//	stmt, err := query.Parse("SELECT city, COUNT(*) AS n FROM users GROUP BY city")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := engine.ExecuteStatement(ctx, catalog, stmt, nil, query.WithMaxRows(100))
//
// # Supported Syntax
//
//   - SELECT [DISTINCT] [TOP n] with aliases, * and t.*
//   - FROM a table, a quoted name or a derived table, with INNER, LEFT,
//     RIGHT, FULL and CROSS joins
//   - WHERE, GROUP BY, HAVING
//   - UNION and UNION ALL, with ORDER BY and LIMIT over the whole statement
//   - IN, EXISTS and scalar subqueries (uncorrelated)
//   - CASE, CAST and CONVERT
//   - ? parameters bound positionally
//
// # NULL Handling
//
// NULL sorts before every other value and compares equal to NULL. WHERE,
// HAVING, ON and CASE conditions treat NULL as false. AND and OR follow
// three-valued logic.
//
// # Comparison
//
// Strings compare case-insensitively. A string compared with a number is
// compared numerically when it parses as one, otherwise as text.
//
// # Functions
//
// Scalar and aggregate functions live in a FunctionRegistry. The default
// registry carries string, math, conversion, date and aggregate builtins;
// callers may register their own with RegisterFunc and
// RegisterAggregateFunc and pass the registry through WithFunctions.
//
// # Error Handling
//
// Execution failures are *Error values carrying a Code. Use errors.Is with
// the Err* sentinels (ErrSyntax, ErrUnknownColumn, ErrUnboundTable and the
// rest) to test for a category.
package query
