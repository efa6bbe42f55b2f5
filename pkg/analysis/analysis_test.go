package analysis

import (
	"testing"
)

func TestEmptyPortfolioScoresZero(t *testing.T) {
	s := Score(Portfolio{})

	if s.Completeness != 0 {
		t.Errorf("expected 0 completeness, got %d", s.Completeness)
	}
	if s.Overall != 0 {
		t.Errorf("expected 0 overall, got %d", s.Overall)
	}
	if len(s.Suggestions) == 0 {
		t.Error("empty portfolio should produce suggestions")
	}
}

func TestFullPortfolioCompleteness(t *testing.T) {
	p := Portfolio{
		Bio: "Student of systems programming",
		Skills: []Skill{
			{Name: "Go", Level: "advanced"},
		},
		Projects: []Project{
			{Title: "Cache", Description: "A TTL cache", URL: "https://example.com"},
		},
	}

	s := Score(p)
	if s.Completeness != 100 {
		t.Errorf("expected 100 completeness, got %d", s.Completeness)
	}
}

func TestPartialProjectMetadata(t *testing.T) {
	p := Portfolio{
		Bio:    "bio",
		Skills: []Skill{{Name: "Go", Level: "beginner"}},
		Projects: []Project{
			{Title: "A", Description: "described", URL: "https://a"},
			{Title: "B"}, // no description, no link
		},
	}

	s := Score(p)
	// 20 bio + 20 skills + 20 projects + 10 described + 10 linked
	if s.Completeness != 80 {
		t.Errorf("expected 80 completeness, got %d", s.Completeness)
	}
}

func TestSkillDepthWeighting(t *testing.T) {
	beginner := Score(Portfolio{Skills: []Skill{{Name: "Go", Level: "beginner"}}})
	expert := Score(Portfolio{Skills: []Skill{{Name: "Go", Level: "expert"}}})

	if expert.SkillDepth <= beginner.SkillDepth {
		t.Errorf("expert (%d) should outscore beginner (%d)",
			expert.SkillDepth, beginner.SkillDepth)
	}
}

func TestSkillDepthSaturates(t *testing.T) {
	var skills []Skill
	for i := 0; i < 50; i++ {
		skills = append(skills, Skill{Name: "s", Level: "expert"})
	}

	s := Score(Portfolio{Skills: skills})
	if s.SkillDepth != 100 {
		t.Errorf("expected saturation at 100, got %d", s.SkillDepth)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	p := Portfolio{
		Bio:    "bio",
		Skills: []Skill{{Name: "Go", Level: "intermediate"}},
	}

	first := Score(p)
	second := Score(p)
	if first.Overall != second.Overall || first.Completeness != second.Completeness {
		t.Error("identical input must produce identical scores")
	}
}
