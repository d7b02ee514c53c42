// Package pdfua checks the built structure graph against the PDF/UA-1
// accessibility rules this library can verify. Violations are reported,
// never fatal: an imperfect document is still written.
package pdfua

import (
	"fmt"

	"github.com/wudi/pdftag/structtree"
)

type Level int

const (
	PDFUA1 Level = iota
)

func (l Level) String() string {
	switch l {
	case PDFUA1:
		return "PDF/UA-1"
	default:
		return "Unknown"
	}
}

type Violation struct {
	Code        string
	Description string
	Location    string
}

type Report struct {
	Standard   string
	Violations []Violation
}

func (r *Report) Compliant() bool { return len(r.Violations) == 0 }

type Validator interface {
	Validate(b *structtree.Builder) *Report
}

type validatorImpl struct{}

func NewValidator() Validator { return &validatorImpl{} }

func (v *validatorImpl) Validate(b *structtree.Builder) *Report {
	report := &Report{
		Standard:   PDFUA1.String(),
		Violations: []Violation{},
	}

	// 1. Document must be tagged at all.
	if b.IsEmpty() {
		report.Violations = append(report.Violations, Violation{
			Code:        "UA001",
			Description: "Document has no structure tree (no tagged content)",
			Location:    "Catalog",
		})
		return report
	}

	for _, e := range b.Elements() {
		loc := "StructElem " + e.Node.ID

		// 2. Figures require alternate text.
		if e.StructTag == "Figure" && e.Alt == "" {
			report.Violations = append(report.Violations, Violation{
				Code:        "UA002",
				Description: "Figure without alternate text",
				Location:    loc,
			})
		}

		// 3. Every element must hold content or children.
		if !e.Rendered() && len(e.KidIDs) == 0 {
			report.Violations = append(report.Violations, Violation{
				Code:        "UA003",
				Description: fmt.Sprintf("Empty structure element %s", e.StructTag),
				Location:    loc,
			})
		}

		// 4. List items must live inside a list.
		if e.StructTag == "LI" {
			if parent := parentTag(b, e); parent != "L" {
				report.Violations = append(report.Violations, Violation{
					Code:        "UA004",
					Description: "LI outside of L",
					Location:    loc,
				})
			}
		}
	}

	// 5. Heading order: the first heading should be H1.
	if first := firstHeading(b); first != "" && first != "H1" {
		report.Violations = append(report.Violations, Violation{
			Code:        "UA005",
			Description: "First heading is " + first + ", expected H1",
			Location:    "Document",
		})
	}

	return report
}

func parentTag(b *structtree.Builder, e *structtree.Element) string {
	for _, cand := range b.Elements() {
		if cand.ObjectID == e.ParentID {
			return cand.StructTag
		}
	}
	return ""
}

func firstHeading(b *structtree.Builder) string {
	bestSeq := -1
	tag := ""
	for _, e := range b.Elements() {
		if len(e.StructTag) != 2 || e.StructTag[0] != 'H' {
			continue
		}
		if e.StructTag[1] < '1' || e.StructTag[1] > '6' {
			continue
		}
		if bestSeq == -1 || e.Node.Seq() < bestSeq {
			bestSeq = e.Node.Seq()
			tag = e.StructTag
		}
	}
	return tag
}
