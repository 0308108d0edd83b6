// AngelaMos | 2026
// catalog.go

package tutor

import (
	"fmt"
	"strings"
)

type Subject struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Prompt string `json:"-"`
}

type ExamType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const basePrompt = "You are a patient tutor for secondary school students. " +
	"Explain step by step, check understanding, and keep answers focused on the question."

var subjects = [...]Subject{
	{"mathematics", "Mathematics", "📐", "Show every working step and name the rule used in each step."},
	{"physics", "Physics", "⚛️", "Start from the governing law, state units, and sanity check magnitudes."},
	{"chemistry", "Chemistry", "🧪", "Balance equations explicitly and mention safety where relevant."},
	{"biology", "Biology", "🧬", "Use correct terminology and relate structures to their functions."},
	{"english", "English", "📖", "Quote the text when analysing and correct grammar gently."},
	{"kiswahili", "Kiswahili", "🗣️", "Jibu kwa Kiswahili sanifu na toa mifano."},
	{"history", "History", "🏛️", "Anchor events with dates and discuss causes and consequences."},
	{"geography", "Geography", "🌍", "Use maps, regions, and data to support explanations."},
	{"computer_studies", "Computer Studies", "💻", "Prefer small runnable examples and explain each line."},
	{"general", "General", "🎓", ""},
}

var examTypes = [...]ExamType{
	{"kcse", "KCSE"},
	{"kcpe", "KCPE"},
	{"igcse", "IGCSE"},
	{"sat", "SAT"},
	{"general", "General practice"},
}

const DefaultSubject = "general"

func Subjects() []Subject {
	out := make([]Subject, len(subjects))
	copy(out, subjects[:])
	return out
}

func ExamTypes() []ExamType {
	out := make([]ExamType, len(examTypes))
	copy(out, examTypes[:])
	return out
}

func LookupSubject(id string) (Subject, bool) {
	for _, s := range subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

func LookupExamType(id string) (ExamType, bool) {
	for _, e := range examTypes {
		if e.ID == id {
			return e, true
		}
	}
	return ExamType{}, false
}

// SystemPrompt assembles the instructions for one question.
func SystemPrompt(subject Subject, exam *ExamType, language string) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if subject.Prompt != "" {
		b.WriteString(" ")
		b.WriteString(subject.Prompt)
	}

	if exam != nil && exam.ID != "general" {
		fmt.Fprintf(&b, " Frame answers the way %s examiners expect.", exam.Name)
	}

	if language != "" && language != "en" {
		fmt.Fprintf(&b, " Reply in the language with ISO code %q.", language)
	}

	return b.String()
}
