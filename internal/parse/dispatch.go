package parse

import (
	"fmt"
	"strings"
	"time"

	"github.com/Nookons/tk-assistant-sub000/internal/catalog"
)

// translateSentinel marks annotation lines that carry no report. They are
// skipped silently regardless of grammar.
const translateSentinel = "Translate"

// Dispatcher walks a pasted shift log line by line. It keeps the current
// speaker as explicit fold state: a line that exactly matches a directory
// name switches the speaker, every following data line is parsed with the
// grammar of that speaker's warehouse. One malformed line never aborts
// the pass; it yields exactly one diagnostic and the walk continues.
type Dispatcher struct {
	snap       *catalog.Snapshot
	workDate   time.Time
	secondSite string
}

// NewDispatcher creates a dispatcher over a session snapshot.
// workDate anchors all time tokens; secondSite is the warehouse code
// whose employees report in the comma-tolerant line format.
func NewDispatcher(snap *catalog.Snapshot, workDate time.Time, secondSite string) *Dispatcher {
	return &Dispatcher{
		snap:       snap,
		workDate:   workDate,
		secondSite: secondSite,
	}
}

// state is the accumulator carried across lines.
type state struct {
	employee    catalog.Employee
	hasEmployee bool
}

// Parse converts one pasted blob into issues and diagnostics, both in
// input line order. Line numbers in diagnostics are 1-based.
func (d *Dispatcher) Parse(text string) Result {
	var res Result
	var st state

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		// A line that is exactly a directory name switches the speaker.
		if emp, ok := d.snap.LookupEmployee(line); ok {
			st.employee = emp
			st.hasEmployee = true
			continue
		}

		if isTranslateLine(line) {
			continue
		}

		if !st.hasEmployee {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Line:    lineNo,
				Message: "data line before any employee line",
				Raw:     line,
			})
			continue
		}

		// Grammar selection is keyed on the speaker's warehouse profile,
		// never re-detected from line shape.
		var issue Issue
		var err error
		if strings.EqualFold(st.employee.Warehouse, d.secondSite) {
			issue, err = d.buildSecondSite(line, st.employee)
		} else {
			issue, err = d.buildDotted(line, st.employee)
		}
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Line:    lineNo,
				Message: err.Error(),
				Raw:     line,
			})
			continue
		}
		res.Issues = append(res.Issues, issue)
	}

	return res
}

// buildDotted parses a first-site line: description.robot.H:mm with an
// optional trailing free-text note.
func (d *Dispatcher) buildDotted(line string, emp catalog.Employee) (Issue, error) {
	if err := ValidateDottedLine(line); err != nil {
		return Issue{}, err
	}

	fields := strings.Split(line, ".")
	desc := strings.TrimSpace(fields[0])
	robot := strings.TrimSpace(fields[1])
	clock := fields[2]
	note := ""
	if len(fields) > 3 {
		note = strings.TrimSpace(strings.Join(fields[3:], "."))
	}

	tmpl, ok := d.snap.MatchTemplate(desc)
	if !ok {
		return Issue{}, fmt.Errorf("no error template matches %q", desc)
	}

	if note != "" {
		desc = desc + " (" + note + ")"
	}

	return d.buildIssue(emp, robot, desc, clock, tmpl, tmpl.IssueType, tmpl.IssueSubType), nil
}

// buildSecondSite parses a second-site line: robot, description, operator
// recovery notes, time; fields split on '.' or ','.
func (d *Dispatcher) buildSecondSite(line string, emp catalog.Employee) (Issue, error) {
	fields := splitSecondSite(line)
	if len(fields) < 5 {
		return Issue{}, fmt.Errorf("expected at least 5 fields separated by '.' or ',', got %d", len(fields))
	}

	robot := fields[0]
	desc := fields[1]
	clock := fields[len(fields)-1]
	notes := strings.Join(fields[2:len(fields)-1], "; ")

	tmpl, ok := d.snap.MatchTemplate(desc)
	if !ok {
		return Issue{}, fmt.Errorf("no error template matches %q", desc)
	}

	if notes != "" {
		desc = desc + " (" + notes + ")"
	}

	return d.buildIssue(emp, robot, desc, clock, tmpl, tmpl.FirstColumn, tmpl.SecondColumn), nil
}

// buildIssue assembles the record from validated fields and a matched
// template.
func (d *Dispatcher) buildIssue(emp catalog.Employee, robot, desc, clock string, tmpl catalog.ErrorTemplate, primary, secondary string) Issue {
	minutes := tmpl.SolvingTimeMinutes
	if minutes < 0 {
		minutes = 0
	}

	start := ResolveClock(clock, d.workDate)

	device := d.snap.DeviceType(robot)
	if device == catalog.UnknownDeviceType && tmpl.DeviceHint != "" {
		device = tmpl.DeviceHint
	}

	return Issue{
		Employee:           emp.Name,
		Warehouse:          emp.Warehouse,
		Robot:              robot,
		DeviceType:         device,
		CategoryPrimary:    primary,
		CategorySecondary:  secondary,
		RecoveryTitle:      tmpl.RecoveryTitle,
		Description:        desc,
		SolvingTimeMinutes: minutes,
		StartTime:          start,
		EndTime:            start.Add(time.Duration(minutes) * time.Minute),
	}
}

// isTranslateLine reports whether the first delimited field is the
// Translate sentinel.
func isTranslateLine(line string) bool {
	fields := splitSecondSite(line)
	return len(fields) > 0 && strings.EqualFold(fields[0], translateSentinel)
}

// splitSecondSite splits on '.' or ',' and trims each field. Empty fields
// produced by doubled delimiters are dropped.
func splitSecondSite(line string) []string {
	raw := strings.FieldsFunc(line, func(r rune) bool {
		return r == '.' || r == ','
	})
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
