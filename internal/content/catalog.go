// Package content holds the site's fixed copy: the showcase project list,
// option lists used by the dashboard forms, and the public page text.
package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FilterAll is the portfolio filter value that passes every project.
const FilterAll = "All"

//go:embed catalog.yaml
var catalogYAML []byte

type Project struct {
	ID          int64    `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Category    string   `yaml:"category" json:"category"`
	Image       string   `yaml:"image" json:"image"`
	Description string   `yaml:"description" json:"description"`
	Client      string   `yaml:"client" json:"client"`
	Date        string   `yaml:"date" json:"date"`
	Location    string   `yaml:"location" json:"location"`
	Details     string   `yaml:"details" json:"details"`
	Gallery     []string `yaml:"gallery" json:"gallery"`
	Tags        []string `yaml:"tags" json:"tags"`
}

type Studio struct {
	Name     string `yaml:"name"`
	Tagline  string `yaml:"tagline"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	WhatsApp string `yaml:"whatsapp"`
	Office   string `yaml:"office"`
	Hours    string `yaml:"hours"`
	TeamSize string `yaml:"team_size"`
}

type Member struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

type Package struct {
	Name     string `yaml:"name"`
	Price    string `yaml:"price"`
	Duration string `yaml:"duration"`
}

type Vertical struct {
	Title       string    `yaml:"title"`
	Tagline     string    `yaml:"tagline"`
	Description string    `yaml:"description"`
	Features    []string  `yaml:"features"`
	Packages    []Package `yaml:"packages"`
}

type Catalog struct {
	Studio           Studio     `yaml:"studio"`
	PortfolioFilters []string   `yaml:"portfolio_filters"`
	CardCategories   []string   `yaml:"card_categories"`
	Projects         []Project  `yaml:"projects"`
	EventTypes       []string   `yaml:"event_types"`
	Deliverables     []string   `yaml:"deliverables"`
	Employees        []string   `yaml:"employees"`
	Departments      []string   `yaml:"departments"`
	Team             []Member   `yaml:"team"`
	Verticals        []Vertical `yaml:"verticals"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("content.Load: %w", err)
	}
	if len(c.Projects) == 0 {
		return nil, fmt.Errorf("content.Load: catalog has no projects")
	}
	return &c, nil
}

// Filter returns the projects whose category equals category, in input
// order. FilterAll and "" return a copy of the whole list.
func Filter(projects []Project, category string) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if category == FilterAll || category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the project with id.
func Find(projects []Project, id int64) (Project, bool) {
	for _, p := range projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// Contains reports whether v is one of options.
func Contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
