package sqlengine

import "strings"

// StatementKind is the kind of statement a query was classified as.
type StatementKind int

const (
	StmtEmpty StatementKind = iota
	StmtShowTables
	StmtDescribe
	StmtSelect
	StmtCount
	StmtUnsupported
)

func (k StatementKind) String() string {
	switch k {
	case StmtEmpty:
		return "empty"
	case StmtShowTables:
		return "show_tables"
	case StmtDescribe:
		return "describe"
	case StmtSelect:
		return "select"
	case StmtCount:
		return "count"
	default:
		return "unsupported"
	}
}

// Statement is a classified query.
type Statement struct {
	Kind   StatementKind
	Query  string
	Tokens []Token
	// Table is the lower-cased table named by DESCRIBE or by the FROM of a
	// COUNT statement. It is empty when the query names none.
	Table string
}

// Classify determines the statement kind. The checks run in a fixed order
// and the first match wins:
//
//	empty input
//	SHOW TABLES anywhere
//	leading DESCRIBE <name> or DESC <name>
//	leading SELECT
//	COUNT( anywhere, with no space before the parenthesis
//
// Anything else is unsupported.
func Classify(query string) Statement {
	q := strings.TrimSpace(query)
	stmt := Statement{Kind: StmtUnsupported, Query: q}
	if q == "" {
		stmt.Kind = StmtEmpty
		return stmt
	}

	toks := Tokenize(q)
	stmt.Tokens = toks

	switch {
	case hasSequence(toks, "SHOW", "TABLES"):
		stmt.Kind = StmtShowTables

	case len(toks) >= 2 && (toks[0].Is("DESCRIBE") || toks[0].Is("DESC")) && toks[1].Kind == TokWord:
		stmt.Kind = StmtDescribe
		stmt.Table = strings.ToLower(toks[1].Text)

	case len(toks) > 0 && toks[0].Is("SELECT"):
		stmt.Kind = StmtSelect
		stmt.Table, _ = fromTable(toks)

	case hasCount(toks):
		stmt.Kind = StmtCount
		stmt.Table, _ = fromTable(toks)
	}
	return stmt
}

// hasSequence reports whether the words appear as consecutive tokens.
func hasSequence(toks []Token, words ...string) bool {
	for i := 0; i+len(words) <= len(toks); i++ {
		match := true
		for j, w := range words {
			if !toks[i+j].Is(w) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func hasCount(toks []Token) bool {
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].Is("COUNT") && toks[i+1].IsSymbol("(") && toks[i].End == toks[i+1].Pos {
			return true
		}
	}
	return false
}

// fromTable returns the lower-cased word following the first FROM that is
// followed by a word.
func fromTable(toks []Token) (string, bool) {
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].Is("FROM") && toks[i+1].Kind == TokWord {
			return strings.ToLower(toks[i+1].Text), true
		}
	}
	return "", false
}

// indexWord returns the index of the first token at or after start that
// is the word kw, or -1.
func indexWord(toks []Token, start int, kw string) int {
	for i := start; i < len(toks); i++ {
		if toks[i].Is(kw) {
			return i
		}
	}
	return -1
}
