package sqlengine

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// predicate is one WHERE shape: column op literal.
type predicate struct {
	column  string
	literal string  // for =, compared case-insensitively as text
	number  float64 // for > and <
}

// selectQuery holds the clauses extracted from a SELECT statement. Each
// clause is found independently of the others.
type selectQuery struct {
	table   string
	hasFrom bool

	eq, gt, lt *predicate

	orderBy  string
	desc     bool
	hasOrder bool

	limit    int
	hasLimit bool

	columns   []string
	star      bool
	hasSelect bool
}

func parseSelect(query string, toks []Token) selectQuery {
	var sq selectQuery
	sq.table, sq.hasFrom = fromTable(toks)

	if where := whereTokens(toks); len(where) > 0 {
		sq.eq = findEquality(where)
		sq.gt = findComparison(where, ">")
		sq.lt = findComparison(where, "<")
	}

	for i := 0; i+2 < len(toks); i++ {
		if toks[i].Is("ORDER") && toks[i+1].Is("BY") && toks[i+2].Kind == TokWord {
			sq.orderBy = strings.ToLower(toks[i+2].Text)
			sq.hasOrder = true
			sq.desc = i+3 < len(toks) && toks[i+3].Is("DESC")
			break
		}
	}

	for i := 0; i+1 < len(toks); i++ {
		if !toks[i].Is("LIMIT") {
			continue
		}
		if digits, ok := toks[i+1].DigitPrefix(); ok {
			n, err := strconv.Atoi(digits)
			if err != nil {
				n = math.MaxInt
			}
			sq.limit, sq.hasLimit = n, true
			break
		}
	}

	sq.columns, sq.star, sq.hasSelect = selectList(query, toks)
	return sq
}

// whereTokens returns the tokens after the first WHERE, up to the next
// ORDER, GROUP, LIMIT or semicolon.
func whereTokens(toks []Token) []Token {
	start := indexWord(toks, 0, "WHERE")
	if start < 0 {
		return nil
	}
	start++
	end := start
	for end < len(toks) {
		t := toks[end]
		if t.Is("ORDER") || t.Is("GROUP") || t.Is("LIMIT") || t.IsSymbol(";") {
			break
		}
		end++
	}
	return toks[start:end]
}

// findEquality finds the first "column = 'text'" or "column = 123".
func findEquality(toks []Token) *predicate {
	for i := 0; i+2 < len(toks); i++ {
		if toks[i].Kind != TokWord || !toks[i+1].IsSymbol("=") {
			continue
		}
		lit := toks[i+2]
		if lit.Kind == TokString && lit.Text != "" {
			return &predicate{column: strings.ToLower(toks[i].Text), literal: lit.Text}
		}
		if digits, ok := lit.DigitPrefix(); ok {
			return &predicate{column: strings.ToLower(toks[i].Text), literal: digits}
		}
	}
	return nil
}

// findComparison finds the first "column op 123" for op > or <.
func findComparison(toks []Token, op string) *predicate {
	for i := 0; i+2 < len(toks); i++ {
		if toks[i].Kind != TokWord || !toks[i+1].IsSymbol(op) {
			continue
		}
		if digits, ok := toks[i+2].DigitPrefix(); ok {
			n, err := strconv.ParseFloat(digits, 64)
			if err != nil {
				continue
			}
			return &predicate{column: strings.ToLower(toks[i].Text), number: n}
		}
	}
	return nil
}

// selectList returns the lower-cased, comma-separated column names
// between SELECT and the first FROM after it.
func selectList(query string, toks []Token) (cols []string, star, ok bool) {
	sel := indexWord(toks, 0, "SELECT")
	if sel < 0 {
		return nil, false, false
	}
	from := indexWord(toks, sel+2, "FROM")
	if from < 0 {
		return nil, false, false
	}
	clause := strings.TrimSpace(collapseSpace(query[toks[sel].End:toks[from].Pos]))
	if clause == "*" {
		return nil, true, true
	}
	for _, c := range strings.Split(clause, ",") {
		cols = append(cols, strings.ToLower(strings.TrimSpace(c)))
	}
	return cols, false, true
}

func evalSelect(db *Database, stmt Statement) Result {
	sq := parseSelect(stmt.Query, stmt.Tokens)
	if !sq.hasFrom {
		return failure("Invalid query: Missing FROM clause")
	}
	table, ok := db.Table(sq.table)
	if !ok {
		return failure("Table '" + sq.table + "' does not exist. Available tables: " + strings.Join(db.Names(), ", "))
	}

	rows := table.Rows
	if sq.eq != nil {
		p := sq.eq
		rows = filter(rows, func(r Record) bool {
			v, ok := r.Get(p.column)
			return ok && strings.EqualFold(v.String(), p.literal)
		})
	}
	if sq.gt != nil {
		p := sq.gt
		rows = filter(rows, func(r Record) bool {
			f, ok := numeric(r, p.column)
			return ok && f > p.number
		})
	}
	if sq.lt != nil {
		p := sq.lt
		rows = filter(rows, func(r Record) bool {
			f, ok := numeric(r, p.column)
			return ok && f < p.number
		})
	}

	if sq.hasOrder {
		rows = sortRows(rows, sq.orderBy, sq.desc)
	}
	if sq.hasLimit && sq.limit < len(rows) {
		rows = rows[:sq.limit]
	}

	if !sq.hasSelect {
		return failure("Invalid query: Missing SELECT clause")
	}

	var columns []string
	if sq.star {
		if len(rows) > 0 {
			columns = rows[0].Keys()
		}
	} else {
		columns = sq.columns
		projected := make([]Record, len(rows))
		for i, r := range rows {
			projected[i] = r.Project(columns)
		}
		rows = projected
	}

	res := Result{Success: true, Data: rows, Columns: columns}
	if len(rows) == 0 {
		res.Message = "Query executed successfully. No rows returned."
	}
	return res.normalize()
}

func filter(rows []Record, keep func(Record) bool) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func numeric(r Record, column string) (float64, bool) {
	v, ok := r.Get(column)
	if !ok {
		return 0, false
	}
	f, ok := v.Float()
	return f, ok && !math.IsNaN(f)
}

// sortRows stable-sorts a copy of rows by column. Two numbers compare
// numerically; anything else compares by collated text. Rows missing the
// column compare equal to every row.
func sortRows(rows []Record, column string, desc bool) []Record {
	sorted := slices.Clone(rows)
	// Collators keep scratch buffers, so each sort gets its own.
	coll := collate.New(language.English)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		av, aok := a.Get(column)
		bv, bok := b.Get(column)
		var c int
		switch {
		case !aok || !bok || av.Type == TypeNull || bv.Type == TypeNull:
			c = 0
		case av.Type == TypeNumber && bv.Type == TypeNumber:
			c = cmp.Compare(av.Num, bv.Num)
		default:
			c = coll.CompareString(av.String(), bv.String())
		}
		if desc {
			return -c
		}
		return c
	})
	return sorted
}
