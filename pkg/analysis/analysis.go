// Package analysis holds the deterministic portfolio-scoring heuristics.
// These are plain arithmetic over portfolio contents; no model, no
// remote calls.
package analysis

import (
	"strings"
)

// Scores is the heuristic breakdown for one portfolio.
type Scores struct {
	Completeness int      `json:"completeness"` // 0-100
	SkillDepth   int      `json:"skill_depth"`  // 0-100
	Overall      int      `json:"overall"`      // 0-100
	Suggestions  []string `json:"suggestions,omitempty"`
}

// Portfolio is the subset of portfolio data the heuristics look at.
type Portfolio struct {
	Bio      string
	Skills   []Skill
	Projects []Project
}

type Skill struct {
	Name  string
	Level string // beginner, intermediate, advanced, expert
}

type Project struct {
	Title       string
	Description string
	Tags        []string
	URL         string
}

var levelWeight = map[string]int{
	"beginner":     1,
	"intermediate": 2,
	"advanced":     3,
	"expert":       4,
}

// Score computes the heuristic breakdown for a portfolio.
func Score(p Portfolio) Scores {
	s := Scores{
		Completeness: completeness(p),
		SkillDepth:   skillDepth(p.Skills),
	}
	s.Overall = (s.Completeness + s.SkillDepth) / 2
	s.Suggestions = suggestions(p)
	return s
}

// completeness rewards filled-in sections: bio, skills, projects, and
// projects that carry descriptions and links.
func completeness(p Portfolio) int {
	score := 0
	if strings.TrimSpace(p.Bio) != "" {
		score += 20
	}
	if len(p.Skills) > 0 {
		score += 20
	}
	if len(p.Projects) > 0 {
		score += 20
	}

	described := 0
	linked := 0
	for _, project := range p.Projects {
		if strings.TrimSpace(project.Description) != "" {
			described++
		}
		if project.URL != "" {
			linked++
		}
	}
	if len(p.Projects) > 0 {
		score += 20 * described / len(p.Projects)
		score += 20 * linked / len(p.Projects)
	}
	return score
}

// skillDepth scales with level-weighted skill count, saturating at 100.
func skillDepth(skills []Skill) int {
	total := 0
	for _, skill := range skills {
		total += levelWeight[strings.ToLower(skill.Level)]
	}
	// Ten expert-level skills saturate the scale
	score := total * 100 / 40
	if score > 100 {
		return 100
	}
	return score
}

func suggestions(p Portfolio) []string {
	var out []string
	if strings.TrimSpace(p.Bio) == "" {
		out = append(out, "add a short bio")
	}
	if len(p.Skills) < 3 {
		out = append(out, "list at least three skills")
	}
	if len(p.Projects) == 0 {
		out = append(out, "add a project")
	}
	for _, project := range p.Projects {
		if strings.TrimSpace(project.Description) == "" {
			out = append(out, "describe project "+project.Title)
		}
	}
	return out
}
