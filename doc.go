// Package signet holds the errors shared by the signet packages.
//
// A signet identifies a database product by vendor and version, e.g.
// "PostgreSQL 16.2". The dialect/rdbms package resolves the signet of a
// connection to a Dialect that generates DDL and DML, binds values and
// runs batched statements with retries. See the dialect/rdbms and
// dialect/sql packages.
package signet
