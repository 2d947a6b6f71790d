package wire

import "context"

// Statement is a parsed SQL command handed back by a Parser. The core
// treats it as opaque and never inspects it beyond String(), whose leading
// keyword it uses to derive the CommandComplete tag.
type Statement interface {
	String() string
}

// Parser turns raw SQL text into zero or more Statements. The core rejects
// more than one Statement per simple-query Query message (unsupported
// multi-statement queries); an empty slice means an empty query string.
type Parser interface {
	Parse(sql string) ([]Statement, error)
}

// Engine is the abstract contract an embedder implements to serve queries.
// Prepare returns the result schema a Statement would produce without
// running it; CreatePortal binds a Statement to a row-producing handle.
type Engine interface {
	Prepare(ctx context.Context, stmt Statement) ([]FieldDescription, error)
	CreatePortal(ctx context.Context, stmt Statement) (Portal, error)
}

// Portal is a bound, row-producing handle created from a Statement. Fetch
// drains all remaining rows into batch in one call; the core never asks a
// Portal to resume a partially-fetched result (see DESIGN.md on max_rows).
type Portal interface {
	Fetch(ctx context.Context, batch *DataRowBatch) error
}
