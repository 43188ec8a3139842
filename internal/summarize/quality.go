package summarize

import (
	"strings"

	"github.com/wedosoft/ticketrag/internal/domain"
)

// parseSections splits markdown text on "## <heading>" lines into the four
// required sections, reporting whether every heading is present AND in the
// required order — a stricter check than domain.Summary.HasAllSections,
// which only checks presence.
func parseSections(text string) (map[domain.SectionName]string, bool) {
	sections := make(map[domain.SectionName]string)
	var order []domain.SectionName

	var current domain.SectionName
	var body strings.Builder

	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(body.String())
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if heading, ok := matchHeading(trimmed); ok {
			flush()
			current = heading
			order = append(order, heading)
			body.Reset()
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	inOrder := len(order) == len(domain.SectionOrder)
	for i, name := range domain.SectionOrder {
		if !inOrder {
			break
		}
		if order[i] != name {
			inOrder = false
		}
	}

	return sections, inOrder
}

func matchHeading(line string) (domain.SectionName, bool) {
	trimmed := strings.TrimLeft(line, "#")
	if trimmed == line {
		return "", false
	}
	trimmed = strings.TrimSpace(trimmed)
	for _, name := range domain.SectionOrder {
		if strings.EqualFold(trimmed, string(name)) {
			return name, true
		}
	}
	return "", false
}

// structureScore is 1.0 when all four sections are present in order, 0
// otherwise — the spec gives no partial-credit rule for structure.
func structureScore(inOrder bool) float64 {
	if inOrder {
		return 1.0
	}
	return 0.0
}

// speculationScore converts a density into the quality formula's 0..1
// contribution: at or below the threshold, full credit; above it, credit
// decays linearly to zero at 2x the threshold.
func speculationScore(density float64) float64 {
	if density <= domain.SpeculationDensityThreshold {
		return 1.0
	}
	ceiling := domain.SpeculationDensityThreshold * 2
	if density >= ceiling {
		return 0.0
	}
	return 1.0 - (density-domain.SpeculationDensityThreshold)/(ceiling-domain.SpeculationDensityThreshold)
}

// lengthScore is 1.0 within [MinSummaryLength, MaxSummaryLength], decaying
// linearly outside it down to zero at half/double the bound.
func lengthScore(length int) float64 {
	switch {
	case length >= domain.MinSummaryLength && length <= domain.MaxSummaryLength:
		return 1.0
	case length < domain.MinSummaryLength:
		floor := domain.MinSummaryLength / 2
		if length <= floor {
			return 0.0
		}
		return float64(length-floor) / float64(domain.MinSummaryLength-floor)
	default:
		ceiling := domain.MaxSummaryLength * 2
		if length >= ceiling {
			return 0.0
		}
		return 1.0 - float64(length-domain.MaxSummaryLength)/float64(ceiling-domain.MaxSummaryLength)
	}
}

// qualityScore combines structure (0.4), speculation (0.3) and length (0.3)
// per §4.5's formula.
func qualityScore(inOrder bool, density float64, length int) float64 {
	return 0.4*structureScore(inOrder) + 0.3*speculationScore(density) + 0.3*lengthScore(length)
}
