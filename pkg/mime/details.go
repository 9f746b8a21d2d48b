package mime

import "strings"

// IsExecutable - Test if the current mime version should be executable
func (m *Details) IsExecutable() bool {
	for _, e := range executableTypes {
		if strings.EqualFold(m.Type, e) || m.IsSubClassOf(e) {
			return true
		}
	}
	return false
}

// IsSubClassOf Test if the current item is a subclass of the type
func (m *Details) IsSubClassOf(class string) bool {
	for _, sc := range m.SubClass {
		if strings.EqualFold(class, sc) {
			return true
		}
	}
	return false
}

// IsPartial Is this file still being downloaded
func (m *Details) IsPartial() bool {
	return strings.EqualFold(m.Type, Partial)
}

// Matches Test the details against a list of type filters
//
// Each filter is tried in the same order a processor lookup works: an exact
// type, then a parent class, then the catagory or "*". The filter
// "executable" matches any program or script. A filter prefixed with
// "!" excludes matching files and takes precedence over any inclusion.
// An empty filter list matches everything.
//
// Arguments:
//
// - filters []string The type filters to test against
//
// Return:
//
// - bool true if the details are accepted by the filters
func (m *Details) Matches(filters []string) bool {
	if len(filters) == 0 {
		return true
	}

	var (
		included bool = false
		positive bool = false
	)
	for _, f := range filters {
		negated := strings.HasPrefix(f, "!")
		f = strings.TrimPrefix(f, "!")
		if !negated {
			positive = true
		}
		if !m.matchesOne(f) {
			continue
		}
		if negated {
			return false
		}
		included = true
	}
	// Filters consisting only of exclusions accept everything else
	return included || !positive
}

func (m *Details) matchesOne(filter string) bool {
	switch {
	case filter == "*":
		return true
	case strings.EqualFold(filter, Executable):
		return m.IsExecutable()
	case strings.EqualFold(filter, m.Type):
		return true
	case m.IsSubClassOf(filter):
		return true
	case strings.EqualFold(filter, m.Catagory):
		return true
	}
	return false
}
