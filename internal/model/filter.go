package model

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type SortKey string

const (
	SortOrder    SortKey = "order"
	SortPriority SortKey = "priority"
)

// ViewFilter is the session's display selection. It is never persisted.
type ViewFilter struct {
	Status Status  `json:"status"`
	Search string  `json:"search"`
	Sort   SortKey `json:"sort"`
}

func DefaultFilter() ViewFilter {
	return ViewFilter{Status: StatusAll, Sort: SortOrder}
}

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive:
		return StatusActive, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortOrder:
		return SortOrder, nil
	case SortPriority:
		return SortPriority, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PriorityMedium, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Toggled returns the other theme.
func (t Theme) Toggled() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
