// Package sqlengine evaluates a small subset of SQL against tables derived
// from the resume document: SHOW TABLES, DESCRIBE, COUNT and SELECT with a
// single WHERE shape per operator, ORDER BY and LIMIT.
//
// Evaluation is a pure function of the query and the document. The tables
// are rebuilt on every call, so an Engine is safe for concurrent use.
package sqlengine

import (
	"github.com/Zachkp/resume-terminal/internal/resume"
)

const unsupportedMessage = "Unsupported query. Try SELECT, SHOW TABLES, or DESCRIBE statements."

// Result is the outcome of one query. A failed result has no rows and a
// message explaining why; a successful one may still have zero rows.
type Result struct {
	Success bool     `json:"success"`
	Data    []Record `json:"data"`
	Message string   `json:"message"`
	Columns []string `json:"columns"`
}

func failure(msg string) Result {
	return Result{Success: false, Data: []Record{}, Message: msg, Columns: []string{}}
}

// normalize replaces nil slices so the JSON form always carries arrays.
func (r Result) normalize() Result {
	if r.Data == nil {
		r.Data = []Record{}
	}
	if r.Columns == nil {
		r.Columns = []string{}
	}
	return r
}

// Engine evaluates queries against one resume document.
type Engine struct {
	doc *resume.Document
}

// New returns an Engine over doc. The document must not be modified while
// the Engine is in use.
func New(doc *resume.Document) *Engine {
	return &Engine{doc: doc}
}

// Tables returns the table names in SHOW TABLES order.
func (e *Engine) Tables() []string {
	return BuildDatabase(e.doc).Names()
}

// Evaluate runs query. Every problem, from an empty query to an unknown
// table, is reported in the Result rather than as an error.
func (e *Engine) Evaluate(query string) Result {
	db := BuildDatabase(e.doc)
	stmt := Classify(query)

	switch stmt.Kind {
	case StmtEmpty:
		return failure("Empty query")

	case StmtShowTables:
		names := db.Names()
		rows := make([]Record, len(names))
		for i, n := range names {
			rows[i] = Record{{Name: "table_name", Value: StringValue(n)}}
		}
		return Result{Success: true, Data: rows, Columns: []string{"table_name"}}

	case StmtDescribe:
		return describe(db, stmt.Table)

	case StmtSelect:
		return evalSelect(db, stmt)

	case StmtCount:
		if t, ok := db.Table(stmt.Table); ok {
			return Result{
				Success: true,
				Data:    []Record{{{Name: "count", Value: intValue(len(t.Rows))}}},
				Columns: []string{"count"},
			}
		}
	}
	return failure(unsupportedMessage)
}

// describe lists the fields of the table's first row with the type seen
// in that row.
func describe(db *Database, name string) Result {
	t, ok := db.Table(name)
	if !ok {
		return failure("Table '" + name + "' does not exist")
	}
	var rows []Record
	if len(t.Rows) > 0 {
		for _, f := range t.Rows[0] {
			rows = append(rows, Record{
				{Name: "column_name", Value: StringValue(f.Name)},
				{Name: "type", Value: StringValue(f.Value.TypeName())},
			})
		}
	}
	return Result{Success: true, Data: rows, Columns: []string{"column_name", "type"}}.normalize()
}

// Evaluate runs query against the embedded resume document.
func Evaluate(query string) Result {
	doc, err := resume.Default()
	if err != nil {
		return failure("Resume data unavailable: " + err.Error())
	}
	return New(doc).Evaluate(query)
}
