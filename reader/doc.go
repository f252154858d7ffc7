// Package reader materializes relations from external sources.
//
// Three sources are supported: Apache Parquet files (single files or glob
// patterns), YAML fixtures, and database/sql result sets.
//
// # Parquet
//
//	rel, err := reader.ReadFile("data.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Glob patterns read every matching file into one relation. Each row then
// carries a trailing "_file" column with its source path:
//
//	rel, err := reader.ReadFiles("data/*.parquet")
//
// Parquet logical types map onto column types: STRING, ENUM, JSON and UUID
// become VARCHAR, DECIMAL becomes DECIMAL backed by shopspring/decimal, and
// DATE, TIME and TIMESTAMP become time.Time values. Groups and repeated
// fields are kept as OBJECT values.
//
// # Schema Introspection
//
//	infos, err := reader.ExtractSchemaInfo("data.parquet")
//	for _, info := range infos {
//	    fmt.Printf("%s: %s (%s)\n", info.Name, info.TypeName, info.PhysicalType)
//	}
//
// # YAML Fixtures
//
//	tables, err := reader.LoadFixtureFile("fixtures.yaml")
//
// # SQL
//
//	db, _ := sql.Open("sqlite3", "app.db")
//	rel, err := reader.ReadQuery(ctx, db, "SELECT * FROM users WHERE active = ?", true)
//
// Callers own the *sql.DB and must register the driver themselves.
package reader
