// Package sql provides the statement generation and execution primitives
// that vendor dialects are assembled from.
//
// This package is vendor-neutral. Everything that differs between database
// products, such as identifier quoting, placeholder style, SQL type names and
// retry classification, is passed in by the dialect built on top of it (see
// package rdbms).
//
// # Generators
//
// The generators produce parameterized SQL from schema metadata:
//
//   - DDLGenerator: CREATE/DROP TABLE, indexes and foreign keys
//   - DMLGenerator: INSERT, multi-row INSERT, UPDATE, DELETE and SELECT,
//     together with the 1-based parameter position of every column
//
// Example:
//
//	g := sql.NewDMLGenerator(sql.NewQuoter('"', "order"), sql.Dollar)
//	stmt, err := g.Update(users, []*schema.Column{name}, []*schema.Column{id})
//	// update users set name = $1 where id = $2
//
// # Binders
//
// A ValueBinder converts between Go values and driver values for one logical
// type. A BinderRegistry resolves the binder of a column: per-column
// overrides first, then the binder registered for the column type.
//
//	reg := sql.NewBinderRegistry(sql.DefaultBinders())
//	err := reg.RegisterColumn(tag, sql.UUIDBytesBinder)
//
// # Operations
//
// ReadOperation and WriteOperation run generated statements as prepared
// statements. A write operation batches bound value sets and executes them
// with a RetryPolicy, checks affected row counts and reads generated keys
// through a GeneratedKeysReader:
//
//	op := sql.NewWriteOperation(drv, stmt, reg,
//	    sql.WithRetry(policy),
//	    sql.WithKeys(sql.KeysLastInsertID, sql.HighestKeyOnly{}),
//	    sql.ExpectRows(1),
//	)
//	for _, u := range users {
//	    if err := op.AddBatch(values(u)); err != nil {
//	        return err
//	    }
//	}
//	res, err := op.Execute(ctx)
//
// # Collection parameters
//
// ExpandNamed and ExpandPositional rewrite queries whose parameters are
// bound to collections into one placeholder per element:
//
//	e, err := sql.ExpandNamed("select * from users where id in (:ids)",
//	    map[string]any{"ids": []int{1, 2, 3}}, sql.QuestionMark)
//	// select * from users where id in (?, ?, ?)
package sql
