package stats

import (
	"sort"

	"quiz-stats-service/internal/domain"
)

// HighlightCount is how many categories the strongest/weakest lists show.
const HighlightCount = 5

type categoryTally struct {
	name    string
	correct int
	total   int
	quizzes map[string]struct{}
}

// AttributeCategories spreads each completion evenly over the categorized
// rounds of its quiz and returns per-category accuracy sorted ascending by
// percentage. Integer division drops remainder questions. Completions whose
// quiz is absent from quizzes contribute nothing.
func AttributeCategories(completions []domain.QuizCompletion, quizzes map[string]domain.Quiz) ([]domain.CategoryStat, error) {
	tallies := make(map[string]*categoryTally)
	for _, c := range completions {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		quiz, ok := quizzes[c.QuizSlug]
		if !ok {
			continue
		}
		rounds := categorizedRounds(quiz)
		if len(rounds) == 0 {
			continue
		}
		perRoundTotal := c.TotalQuestions / len(rounds)
		perRoundScore := c.Score / len(rounds)
		for _, r := range rounds {
			t, ok := tallies[r.CategoryID]
			if !ok {
				t = &categoryTally{name: r.CategoryName, quizzes: make(map[string]struct{})}
				tallies[r.CategoryID] = t
			}
			t.correct += perRoundScore
			t.total += perRoundTotal
			t.quizzes[c.QuizSlug] = struct{}{}
		}
	}

	out := make([]domain.CategoryStat, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, domain.CategoryStat{
			Name:       t.name,
			Correct:    t.correct,
			Total:      t.total,
			Percentage: Percentage(t.correct, t.total),
			Quizzes:    len(t.quizzes),
		})
	}
	sortAscending(out)
	return out, nil
}

func categorizedRounds(quiz domain.Quiz) []domain.Round {
	rounds := make([]domain.Round, 0, len(quiz.Rounds))
	for _, r := range quiz.Rounds {
		if r.Categorized() {
			rounds = append(rounds, r)
		}
	}
	return rounds
}

// FromCategoryRows maps pre-computed category rows onto CategoryStat.
func FromCategoryRows(rows []domain.UserCategoryStats) []domain.CategoryStat {
	out := make([]domain.CategoryStat, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CategoryStat{
			Name:       r.CategoryName,
			Correct:    r.Correct,
			Total:      r.Total,
			Percentage: RoundTenth(r.Percentage),
			Quizzes:    r.Quizzes,
		})
	}
	return out
}

// Breakdown shapes category stats for display: the top HighlightCount by
// percentage, the bottom HighlightCount (weakest last), and everything
// sorted by percentage descending. With fewer categories the lists overlap.
func Breakdown(categories []domain.CategoryStat) domain.CategoryBreakdown {
	asc := make([]domain.CategoryStat, len(categories))
	copy(asc, categories)
	sortAscending(asc)

	desc := make([]domain.CategoryStat, len(categories))
	copy(desc, categories)
	sort.SliceStable(desc, func(i, j int) bool {
		if desc[i].Percentage != desc[j].Percentage {
			return desc[i].Percentage > desc[j].Percentage
		}
		return desc[i].Name < desc[j].Name
	})

	strongest := make([]domain.CategoryStat, 0, HighlightCount)
	strongest = append(strongest, desc[:min(HighlightCount, len(desc))]...)

	bottom := asc[:min(HighlightCount, len(asc))]
	weakest := make([]domain.CategoryStat, 0, len(bottom))
	for i := len(bottom) - 1; i >= 0; i-- {
		weakest = append(weakest, bottom[i])
	}

	return domain.CategoryBreakdown{
		Strongest: strongest,
		Weakest:   weakest,
		All:       desc,
	}
}

func sortAscending(categories []domain.CategoryStat) {
	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].Percentage != categories[j].Percentage {
			return categories[i].Percentage < categories[j].Percentage
		}
		return categories[i].Name < categories[j].Name
	})
}
