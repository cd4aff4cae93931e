// Package postgres implements the domain Store interfaces over
// PostgreSQL using database/sql and lib/pq. All queries are
// parameterized; the defect listing translates the composed query
// descriptor into a WHERE clause with $n placeholders.
package postgres
