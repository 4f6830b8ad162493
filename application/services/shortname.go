package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"workitems/application/ports"
	"workitems/domain/core/entities"
)

var shortnameNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// ShortnameService derives and disambiguates the slug stored on
// work_items.shortname, regenerated on every rename per spec §4.3.1/§4.3.2.
type ShortnameService struct {
	workItems ports.WorkItemRepository
	limits    int // MaxShortnameLength
}

// NewShortnameService constructs the service with the configured max length.
func NewShortnameService(workItems ports.WorkItemRepository, maxLength int) *ShortnameService {
	return &ShortnameService{workItems: workItems, limits: maxLength}
}

// Slugify lowercases name, replaces runs of non-alphanumerics with a single
// "-", trims leading/trailing "-", and truncates to the configured max
// length (rune-safe). An empty or all-punctuation name slugifies to "item".
func Slugify(name string, maxLength int) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = shortnameNonAlnum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "item"
	}
	runes := []rune(slug)
	if len(runes) > maxLength {
		slug = strings.Trim(string(runes[:maxLength]), "-")
	}
	return slug
}

// Unique returns a shortname guaranteed distinct among the active siblings
// of parentID (nil for roots): the base slug if free, otherwise the base
// slug suffixed with "-2", "-3", ... — spec §4.3.1 leaves the exact
// collision algorithm unstated; this is the deterministic total function
// this repo supplements it with.
func (s *ShortnameService) Unique(ctx context.Context, q ports.Querier, parentID *string, name string) (string, error) {
	base := Slugify(name, s.limits)

	siblings, err := s.workItems.FindChildren(ctx, q, parentIDOrEmpty(parentID), false)
	if err != nil && parentID != nil {
		return "", fmt.Errorf("load siblings for shortname: %w", err)
	}
	if parentID == nil {
		siblings, err = s.workItems.List(ctx, q, ports.WorkItemFilter{RootsOnly: true})
		if err != nil {
			return "", fmt.Errorf("load roots for shortname: %w", err)
		}
	}

	taken := make(map[string]bool, len(siblings))
	for _, sib := range siblings {
		taken[sib.Shortname] = true
	}

	if !taken[base] {
		return base, nil
	}
	for n := 2; ; n++ {
		suffix := fmt.Sprintf("-%d", n)
		candidate := base
		if maxBase := s.limits - len(suffix); len(candidate) > maxBase && maxBase > 0 {
			candidate = candidate[:maxBase]
		}
		candidate += suffix
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

func parentIDOrEmpty(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

// ValidStatusOrDefault normalizes an optional status to a concrete default.
func ValidStatusOrDefault(s *entities.Status) entities.Status {
	if s == nil {
		return entities.StatusTodo
	}
	return *s
}

// ValidPriorityOrDefault normalizes an optional priority to a concrete default.
func ValidPriorityOrDefault(p *entities.Priority) entities.Priority {
	if p == nil {
		return entities.PriorityMedium
	}
	return *p
}
