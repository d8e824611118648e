package core

import (
	"strings"
	"testing"
)

func TestCourse_EmbeddingText(t *testing.T) {
	tests := []struct {
		name     string
		course   Course
		contains []string
		excludes []string
	}{
		{
			name: "no flags",
			course: Course{
				DepartmentFull:  "Computer Science",
				DepartmentShort: "CSCI",
				Code:            "0220",
				Title:           "Discrete Structures and Probability",
				Professor:       "Klein",
				Time:            "MWF 10-10:50",
				Description:     "Sets, logic and counting.",
			},
			contains: []string{
				"Department: Computer Science - CSCI\n",
				"Course code: 0220\n",
				"Title: Discrete Structures and Probability\n",
				"Professor: Klein\n",
				"Time: MWF 10-10:50\n",
				"Description: Sets, logic and counting.\n",
			},
			excludes: []string{"WRIT", "SOPH", "FYS", "RPP"},
		},
		{
			name: "all flags",
			course: Course{
				DepartmentShort: "ENGL",
				Code:            "0100",
				Writ:            true,
				Soph:            true,
				Fys:             true,
				Rpp:             true,
			},
			contains: []string{
				"This course satisfies the WRIT / writing requirement.",
				"This course is a SOPH / sophomore seminar.",
				"This course is a FYS / first-year seminar.",
				"This course is under the RPP / Race Power Privilege category.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := tt.course.EmbeddingText()
			for _, want := range tt.contains {
				if !strings.Contains(text, want) {
					t.Errorf("EmbeddingText() missing %q in:\n%s", want, text)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(text, unwanted) {
					t.Errorf("EmbeddingText() unexpectedly contains %q", unwanted)
				}
			}
		})
	}
}

func TestCourse_WithoutEmbedding(t *testing.T) {
	c := &Course{DepartmentShort: "CSCI", Code: "0150", Embedding: []float32{1, 2}}
	stripped := c.WithoutEmbedding()

	if stripped.Embedding != nil {
		t.Errorf("WithoutEmbedding() kept embedding %v", stripped.Embedding)
	}
	if len(c.Embedding) != 2 {
		t.Errorf("WithoutEmbedding() mutated the original")
	}
	if stripped.Identity() != "CSCI:0150" {
		t.Errorf("Identity() = %q, want CSCI:0150", stripped.Identity())
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte(`[{"code":"0150"}]`))
	b := Fingerprint([]byte(`[{"code":"0150"}]`))
	c := Fingerprint([]byte(`[{"code":"0160"}]`))

	if a != b {
		t.Errorf("Fingerprint() not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("Fingerprint() produced same digest for different content")
	}
	if len(a) != 64 {
		t.Errorf("Fingerprint() length = %d, want 64 hex chars", len(a))
	}
}
