package handler

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxOwnerIDLength = 128
	maxTextLength    = 200000
	maxRepositories  = 100
	maxTopK          = 50
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

type validator struct {
	fields map[string]string
}

func (v *validator) fail(field, msg string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = msg
	}
}

func (v *validator) owner(id string) {
	switch {
	case strings.TrimSpace(id) == "":
		v.fail("owner", "owner id is required")
	case len(id) > maxOwnerIDLength:
		v.fail("owner", fmt.Sprintf("owner id must be at most %d bytes", maxOwnerIDLength))
	}
}

func (v *validator) required(field, text string) {
	if strings.TrimSpace(text) == "" {
		v.fail(field, field+" is required")
		return
	}
	v.bounded(field, text)
}

func (v *validator) bounded(field, text string) {
	if utf8.RuneCountInString(text) > maxTextLength {
		v.fail(field, fmt.Sprintf("%s must be at most %d characters", field, maxTextLength))
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
