// Package repositories implements SQLite persistence for the session tokens.
//
// Key Implementations:
//   - [TokenRepository] : the access/refresh token pair, stored as a single row and written as a unit
//
// Queries are built with squirrel and executed on a [database/sql] handle opened by [shared.OpenDatabase],
// which applies the embedded migrations.
package repositories
