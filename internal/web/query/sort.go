package query

import (
	"fmt"
	"net/url"
	"strings"
)

// SortParam is the query parameter holding the sort list
const SortParam = "sort"

// ParseSort reads ?sort=-created_at,title and returns ORDER BY terms.
// Fields prefixed with '-' are sorted descending. Without a sort parameter
// fallback is used.
func (s *FieldSet) ParseSort(values url.Values, fallback []string) ([]string, error) {
	raw := values.Get(SortParam)
	if raw == "" {
		return fallback, nil
	}
	return s.SortTerms(strings.Split(raw, ","))
}

// SortTerms converts exposed sort names into ORDER BY terms
func (s *FieldSet) SortTerms(sorts []string) ([]string, error) {
	terms := make([]string, 0, len(sorts))
	var invalidFields []string

	for _, sort := range sorts {
		sort = strings.TrimSpace(sort)
		if sort == "" {
			continue
		}

		direction := "ASC"
		name := sort
		if strings.HasPrefix(sort, "-") {
			direction = "DESC"
			name = sort[1:]
		}

		field, ok := s.fields[name]
		if !ok {
			invalidFields = append(invalidFields, name)
			continue
		}
		terms = append(terms, fmt.Sprintf("%s %s", field.ColumnName(), direction))
	}

	if len(invalidFields) > 0 {
		return nil, fmt.Errorf("%w: cannot sort by %s", ErrInvalidFilter, strings.Join(invalidFields, ", "))
	}

	return terms, nil
}
