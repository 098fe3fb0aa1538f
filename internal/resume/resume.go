// Package resume holds the static resume document that feeds both the
// rendered site and the SQL terminal tables.
package resume

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed resume.json
var embedded []byte

// Document is the full resume. Callers treat a loaded Document as read-only.
type Document struct {
	Personal       Personal        `json:"personal" yaml:"personal"`
	Summary        string          `json:"summary" yaml:"summary"`
	Skills         Skills          `json:"skills" yaml:"skills"`
	Projects       []Project       `json:"projects" yaml:"projects"`
	Experience     []Experience    `json:"experience" yaml:"experience"`
	Education      []Education     `json:"education" yaml:"education"`
	Certifications []Certification `json:"certifications" yaml:"certifications"`
}

type Personal struct {
	Name     string `json:"name" yaml:"name"`
	Title    string `json:"title" yaml:"title"`
	Email    string `json:"email" yaml:"email"`
	Phone    string `json:"phone" yaml:"phone"`
	Location string `json:"location" yaml:"location"`
	LinkedIn string `json:"linkedin" yaml:"linkedin"`
	GitHub   string `json:"github" yaml:"github"`
}

// Skills are grouped by category, in display order.
type Skills struct {
	Languages  []string `json:"languages" yaml:"languages"`
	Libraries  []string `json:"libraries" yaml:"libraries"`
	Databases  []string `json:"databases" yaml:"databases"`
	Tools      []string `json:"tools" yaml:"tools"`
	Techniques []string `json:"techniques" yaml:"techniques"`
}

// Group is one named skill category.
type Group struct {
	Title string
	Items []string
}

// Groups returns the skill categories in display order.
func (s Skills) Groups() []Group {
	return []Group{
		{Title: "Languages", Items: s.Languages},
		{Title: "Libraries", Items: s.Libraries},
		{Title: "Databases", Items: s.Databases},
		{Title: "Tools", Items: s.Tools},
		{Title: "Techniques", Items: s.Techniques},
	}
}

// Len returns the number of skills across all categories.
func (s Skills) Len() int {
	n := 0
	for _, g := range s.Groups() {
		n += len(g.Items)
	}
	return n
}

type Project struct {
	Title        string   `json:"title" yaml:"title"`
	Period       string   `json:"period" yaml:"period"`
	Description  string   `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	Metrics      string   `json:"metrics" yaml:"metrics"`
	Highlights   []string `json:"highlights" yaml:"highlights"`
}

type Experience struct {
	Role         string   `json:"role" yaml:"role"`
	Company      string   `json:"company" yaml:"company"`
	Period       string   `json:"period" yaml:"period"`
	Achievements []string `json:"achievements" yaml:"achievements"`
}

type Education struct {
	Degree      string `json:"degree" yaml:"degree"`
	Institution string `json:"institution" yaml:"institution"`
	Period      string `json:"period" yaml:"period"`
	Grade       string `json:"grade" yaml:"grade"`
}

type Certification struct {
	Name   string `json:"name" yaml:"name"`
	Issuer string `json:"issuer" yaml:"issuer"`
	Year   string `json:"year" yaml:"year"`
}

var loadDefault = sync.OnceValues(func() (*Document, error) {
	return Parse(embedded)
})

// Default returns the embedded resume document. The same pointer is
// returned on every call; do not modify it.
func Default() (*Document, error) {
	return loadDefault()
}

// Parse decodes and validates a JSON resume document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode resume json: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseYAML decodes and validates a YAML resume document.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode resume yaml: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads a resume document from disk. The format is chosen by
// file extension.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return Parse(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported resume format %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Load returns the document at path, or the embedded one when path is empty.
func Load(path string) (*Document, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Validate reports every shape problem in the document. Each terminal
// table must end up non-empty.
func (d *Document) Validate() error {
	var errs []error
	if strings.TrimSpace(d.Personal.Name) == "" {
		errs = append(errs, errors.New("personal.name is required"))
	}
	if strings.TrimSpace(d.Personal.Email) == "" {
		errs = append(errs, errors.New("personal.email is required"))
	}
	if len(d.Projects) == 0 {
		errs = append(errs, errors.New("projects must not be empty"))
	}
	if d.Skills.Len() == 0 {
		errs = append(errs, errors.New("skills must not be empty"))
	}
	if len(d.Experience) == 0 {
		errs = append(errs, errors.New("experience must not be empty"))
	}
	if len(d.Education) == 0 {
		errs = append(errs, errors.New("education must not be empty"))
	}
	if len(d.Certifications) == 0 {
		errs = append(errs, errors.New("certifications must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid resume: %w", errors.Join(errs...))
	}
	return nil
}
