package catalog

import "strings"

// UnknownDeviceType is reported when a robot cannot be resolved against
// the fleet snapshot.
const UnknownDeviceType = "Unknown"

// ctuPrefix marks container transfer units, which carry letter-prefixed
// identifiers instead of fleet numbers.
const ctuPrefix = "CTU"

// Snapshot is an immutable per-session view of the three read-only
// catalogs. It is built once before parsing starts and shared by the
// dispatcher and the reconciliation pipeline; nothing mutates it.
type Snapshot struct {
	Employees []Employee
	Templates []ErrorTemplate
	Robots    []Robot

	byEmployee map[string]Employee
	byRobot    map[string]string
}

// NewSnapshot builds the lookup indexes over the raw catalog lists.
func NewSnapshot(employees []Employee, templates []ErrorTemplate, robots []Robot) *Snapshot {
	s := &Snapshot{
		Employees:  employees,
		Templates:  templates,
		Robots:     robots,
		byEmployee: make(map[string]Employee, len(employees)),
		byRobot:    make(map[string]string, len(robots)),
	}
	for _, e := range employees {
		s.byEmployee[strings.ToLower(strings.TrimSpace(e.Name))] = e
	}
	for _, r := range robots {
		s.byRobot[strings.TrimSpace(r.Number)] = r.Type
	}
	return s
}

// LookupEmployee finds a directory entry by exact, case-insensitive name.
// Substring matches are deliberately rejected: a line is an employee line
// only when the whole line is the name.
func (s *Snapshot) LookupEmployee(name string) (Employee, bool) {
	e, ok := s.byEmployee[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// DeviceType resolves a raw robot token to its fleet type. Letter-prefixed
// CTU identifiers are not in the numbered fleet and map to the fixed CTU
// category; anything else unresolved is Unknown.
func (s *Snapshot) DeviceType(robot string) string {
	robot = strings.TrimSpace(robot)
	if t, ok := s.byRobot[robot]; ok && t != "" {
		return t
	}
	if strings.HasPrefix(strings.ToUpper(robot), ctuPrefix) {
		return ctuPrefix
	}
	return UnknownDeviceType
}

// MatchTemplate finds the best catalog entry for a free-text fragment.
// A template matches when its title contains the fragment or the fragment
// contains the title, case-insensitively. Operators abbreviate and
// over-type titles in equal measure, so the test runs both ways; among
// all matches the longest title wins, so "Speed error on start" beats
// "Speed error" for a fragment that mentions the start.
func (s *Snapshot) MatchTemplate(fragment string) (ErrorTemplate, bool) {
	frag := strings.ToLower(strings.TrimSpace(fragment))
	if frag == "" {
		return ErrorTemplate{}, false
	}

	var best ErrorTemplate
	found := false
	for _, t := range s.Templates {
		title := strings.ToLower(strings.TrimSpace(t.Title))
		if title == "" {
			continue
		}
		if !strings.Contains(frag, title) && !strings.Contains(title, frag) {
			continue
		}
		if !found || len(t.Title) > len(best.Title) {
			best = t
			found = true
		}
	}
	return best, found
}
