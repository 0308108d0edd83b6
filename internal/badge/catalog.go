// AngelaMos | 2026
// catalog.go

package badge

type ID string

const (
	FirstQuestion ID = "first_question"
	Streak3       ID = "streak_3"
	Streak7       ID = "streak_7"
	Streak30      ID = "streak_30"
	QuizAce       ID = "quiz_ace"
	PDFExplorer   ID = "pdf_explorer"
	Polyglot      ID = "polyglot"
)

type Definition struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

var catalog = [...]Definition{
	{FirstQuestion, "First Question", "🎯", "Asked the tutor your first question"},
	{Streak3, "3-Day Streak", "🔥", "Studied three days in a row"},
	{Streak7, "Week Warrior", "⚡", "Studied seven days in a row"},
	{Streak30, "Monthly Master", "🏆", "Studied thirty days in a row"},
	{QuizAce, "Quiz Ace", "🧠", "Scored 90% or more on a quiz"},
	{PDFExplorer, "PDF Explorer", "📚", "Uploaded study documents"},
	{Polyglot, "Polyglot", "🌍", "Studied in more than one language"},
}

func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog[:])
	return out
}

func Lookup(id ID) (Definition, bool) {
	for _, d := range catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}
