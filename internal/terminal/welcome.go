package terminal

import (
	"fmt"
	"strings"
)

// TableInfo describes a table in the welcome banner.
type TableInfo struct {
	Name        string
	Description string
}

var Tables = []TableInfo{
	{"projects", "Project portfolio data"},
	{"skills", "Technical skills and proficiencies"},
	{"experience", "Work experience records"},
	{"education", "Educational background"},
	{"certifications", "Professional certifications"},
}

var SampleQueries = []string{
	"SELECT * FROM projects;",
	"SELECT name, proficiency FROM skills WHERE category = 'Languages';",
	"SELECT company, role FROM experience ORDER BY start_date DESC;",
}

// WelcomeMessage is the banner shown when a terminal opens. owner may be
// empty.
func WelcomeMessage(owner string) string {
	var b strings.Builder
	if owner != "" {
		fmt.Fprintf(&b, "Welcome to %s's SQL Terminal!\n\n", firstName(owner))
	} else {
		b.WriteString("Welcome to the SQL Terminal!\n\n")
	}
	b.WriteString("Available tables:\n")
	for _, t := range Tables {
		fmt.Fprintf(&b, "• %s - %s\n", t.Name, t.Description)
	}
	b.WriteString("\nTry queries like:\n")
	b.WriteString(strings.Join(SampleQueries, "\n"))
	return b.String()
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}
