package sqlengine

import (
	"strings"

	"github.com/Zachkp/resume-terminal/internal/resume"
)

// Table is a named, ordered row set.
type Table struct {
	Name string
	Rows []Record
}

// Database is the set of terminal tables built from one resume document.
type Database struct {
	tables []Table
}

// Names returns the table names in SHOW TABLES order.
func (db *Database) Names() []string {
	names := make([]string, len(db.tables))
	for i, t := range db.tables {
		names[i] = t.Name
	}
	return names
}

// Table looks a table up by its exact (lower-case) name.
func (db *Database) Table(name string) (*Table, bool) {
	for i := range db.tables {
		if db.tables[i].Name == name {
			return &db.tables[i], true
		}
	}
	return nil, false
}

// periodSeparator splits "Jan 2024 – Jun 2024" into start and end.
const periodSeparator = "–"

// skillCategory describes how one skill group becomes rows. Ids start at
// idBase and are not unique across categories once a group grows past
// the gap to the next base.
type skillCategory struct {
	name        string
	idBase      int
	items       func(resume.Skills) []string
	proficiency func(skill string) int
}

var skillCategories = []skillCategory{
	{"Languages", 1, func(s resume.Skills) []string { return s.Languages }, topSkill("Python", 90, 85)},
	{"Libraries", 10, func(s resume.Skills) []string { return s.Libraries }, topSkill("Pandas", 85, 80)},
	{"Databases", 20, func(s resume.Skills) []string { return s.Databases }, func(string) int { return 85 }},
	{"Tools", 30, func(s resume.Skills) []string { return s.Tools }, topSkill("Power BI", 90, 80)},
	{"Techniques", 40, func(s resume.Skills) []string { return s.Techniques }, topSkill("EDA", 90, 85)},
}

func topSkill(name string, top, rest int) func(string) int {
	return func(skill string) int {
		if skill == name {
			return top
		}
		return rest
	}
}

// BuildDatabase derives the five terminal tables from doc. Every call
// builds new rows; nothing is shared with earlier results.
func BuildDatabase(doc *resume.Document) *Database {
	return &Database{tables: []Table{
		{Name: "projects", Rows: projectRows(doc.Projects)},
		{Name: "skills", Rows: skillRows(doc.Skills)},
		{Name: "experience", Rows: experienceRows(doc.Experience)},
		{Name: "education", Rows: educationRows(doc.Education)},
		{Name: "certifications", Rows: certificationRows(doc.Certifications)},
	}}
}

func intValue(n int) Value { return NumberValue(float64(n)) }

func projectRows(projects []resume.Project) []Record {
	rows := make([]Record, 0, len(projects))
	for i, p := range projects {
		rows = append(rows, Record{
			{"id", intValue(i + 1)},
			{"title", StringValue(p.Title)},
			{"period", StringValue(p.Period)},
			{"description", StringValue(p.Description)},
			{"technologies", StringValue(strings.Join(p.Technologies, ", "))},
			{"metrics", StringValue(p.Metrics)},
			{"highlights", StringValue(strings.Join(p.Highlights, " | "))},
		})
	}
	return rows
}

func skillRows(skills resume.Skills) []Record {
	var rows []Record
	for _, cat := range skillCategories {
		for i, name := range cat.items(skills) {
			rows = append(rows, Record{
				{"id", intValue(cat.idBase + i)},
				{"name", StringValue(name)},
				{"category", StringValue(cat.name)},
				{"proficiency", intValue(cat.proficiency(name))},
			})
		}
	}
	return rows
}

// splitPeriod returns the start and end of a period. A period without a
// second half is still running.
func splitPeriod(period string) (start, end string) {
	parts := strings.Split(period, periodSeparator)
	start = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		end = strings.TrimSpace(parts[1])
	}
	if end == "" {
		end = "Present"
	}
	return start, end
}

func experienceRows(experience []resume.Experience) []Record {
	rows := make([]Record, 0, len(experience))
	for i, e := range experience {
		start, end := splitPeriod(e.Period)
		rows = append(rows, Record{
			{"id", intValue(i + 1)},
			{"role", StringValue(e.Role)},
			{"company", StringValue(e.Company)},
			{"period", StringValue(e.Period)},
			{"start_date", StringValue(start)},
			{"end_date", StringValue(end)},
			{"achievements", StringValue(strings.Join(e.Achievements, " | "))},
		})
	}
	return rows
}

func educationRows(education []resume.Education) []Record {
	rows := make([]Record, 0, len(education))
	for i, e := range education {
		rows = append(rows, Record{
			{"id", intValue(i + 1)},
			{"degree", StringValue(e.Degree)},
			{"institution", StringValue(e.Institution)},
			{"period", StringValue(e.Period)},
			{"grade", StringValue(e.Grade)},
		})
	}
	return rows
}

func certificationRows(certs []resume.Certification) []Record {
	rows := make([]Record, 0, len(certs))
	for i, c := range certs {
		rows = append(rows, Record{
			{"id", intValue(i + 1)},
			{"name", StringValue(c.Name)},
			{"issuer", StringValue(c.Issuer)},
			{"year", StringValue(c.Year)},
		})
	}
	return rows
}
