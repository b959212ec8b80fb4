// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling and query tracing. Migrations are plain
// idempotent DDL statements applied at startup. Each repository implements
// one domain interface; multi-step decisions such as session registration
// run inside a single transaction here rather than in the service layer.
package database
