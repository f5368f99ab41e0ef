package engine

import (
	"strings"

	"handsfree/internal/intent"
)

// SubjectGroup collects the steps acting on one subject (an app, site, file,
// or contact). StartIndex is the position of the group's first step in the
// original command, so grouping can never reorder execution.
type SubjectGroup struct {
	Subject    string
	Type       string // url | app | file | unknown
	StartIndex int
	Steps      []intent.Step
}

// GroupSubjects groups a validated step list by the distinct subjects the
// command acts on. A command with one subject (or none identifiable) comes
// back as a single group, as does a command whose text has no conjunction;
// a command that names more than one subject and joins them with a
// conjunction (" and "/" then ") is split with each group anchored at its
// first step's index.
func GroupSubjects(text string, steps []intent.Step) []SubjectGroup {
	if len(steps) == 0 {
		return nil
	}

	subjects := identifySubjects(text, steps)
	if len(subjects) <= 1 {
		first := steps[0]
		return []SubjectGroup{{
			Subject:    subjectOf(first),
			Type:       subjectType(first),
			StartIndex: 0,
			Steps:      steps,
		}}
	}
	return assignStepsToSubjects(subjects, steps)
}

// identifySubjects collects the distinct subject names the steps act on, in
// first-appearance order. A conjunction in the text (" and "/" then ") is
// the textual signal that the speaker chained subjects; without one, a
// second subject that merely appears in a step list is treated as part of
// the same action and the command stays a single group.
func identifySubjects(text string, steps []intent.Step) []string {
	var subjects []string
	for _, s := range steps {
		subj := subjectOf(s)
		if subj == "" {
			continue
		}
		seen := false
		for _, existing := range subjects {
			if strings.EqualFold(existing, subj) {
				seen = true
				break
			}
		}
		if !seen {
			subjects = append(subjects, subj)
		}
	}

	lower := " " + strings.ToLower(text) + " "
	hasConjunction := strings.Contains(lower, " and ") || strings.Contains(lower, " then ")
	if len(subjects) > 1 && !hasConjunction {
		return subjects[:1]
	}
	return subjects
}

// subjectOf extracts the subject a step acts on, or "" for steps that carry
// no subject of their own (keystrokes, scrolls, clicks).
func subjectOf(s intent.Step) string {
	switch s.Intent {
	case intent.OpenApp:
		return s.App
	case intent.OpenURL:
		return hostOf(s.URL)
	case intent.OpenFile:
		if idx := strings.LastIndexByte(s.Path, '/'); idx >= 0 {
			return s.Path[idx+1:]
		}
		return s.Path
	case intent.WebSendMessage:
		return s.Contact
	}
	return ""
}

func hostOf(rawURL string) string {
	trimmed := rawURL
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+3:]
	}
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

func subjectType(s intent.Step) string {
	switch {
	case s.Intent == intent.OpenURL || strings.HasPrefix(string(s.Intent), "web_"):
		return "url"
	case s.Intent == intent.OpenApp:
		return "app"
	case s.Intent == intent.OpenFile:
		return "file"
	}
	return "unknown"
}

// assignStepsToSubjects walks the steps in order, switching the current
// subject whenever a step names one, and merges each step into its
// subject's group. A group's StartIndex is the index of the first step that
// created it.
func assignStepsToSubjects(subjects []string, steps []intent.Step) []SubjectGroup {
	groups := make([]SubjectGroup, 0, len(subjects))
	current := 0

	for i, step := range steps {
		stepSubject := subjectOf(step)

		matched := -1
		if stepSubject != "" {
			for idx, subj := range subjects {
				a, b := strings.ToLower(subj), strings.ToLower(stepSubject)
				if strings.Contains(a, b) || strings.Contains(b, a) {
					matched = idx
					break
				}
			}
		}
		if matched == -1 {
			matched = current
		}
		current = matched

		found := false
		for gi := range groups {
			if groups[gi].Subject == subjects[matched] {
				groups[gi].Steps = append(groups[gi].Steps, step)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, SubjectGroup{
				Subject:    subjects[matched],
				Type:       subjectType(step),
				StartIndex: i,
				Steps:      []intent.Step{step},
			})
		}
	}
	return groups
}
