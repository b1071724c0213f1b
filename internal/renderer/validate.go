package renderer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"git.home.luguber.info/inful/blogsmith/internal/errors"
)

// Validate checks the structural contract downstream platforms rely on. A
// violation is a defect signal: it means generation and rendering disagree
// about the document shape, not that the input was merely unlucky.
func Validate(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return errors.RenderContractViolated(fmt.Sprintf("parse rendered document: %v", err))
	}

	if n := doc.Find("h1").Length(); n != 1 {
		return errors.RenderContractViolated(fmt.Sprintf("expected exactly one top-level heading, found %d", n))
	}
	if n := doc.Find("h2").Length(); n < 1 {
		return errors.RenderContractViolated("expected at least one section heading")
	}
	if n := doc.Find("table").Length(); n < 1 {
		return errors.RenderContractViolated("expected at least one tabular element")
	}
	if n := doc.Find("details").Length(); n < 3 {
		return errors.RenderContractViolated(fmt.Sprintf("expected an FAQ block with at least three items, found %d", n))
	}
	if !strings.Contains(html, "[IMG1]") {
		return errors.RenderContractViolated("expected image placeholder markers")
	}
	if !strings.Contains(html, "[CTA_TOP]") {
		return errors.RenderContractViolated("expected call-to-action markers")
	}
	return nil
}
