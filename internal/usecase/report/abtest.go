package report

import (
	"fmt"
	"hash/fnv"

	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/metrics"
)

// Modifications описывает правки варианта поверх базового шаблона.
// Пустые поля означают "без изменений".
type Modifications struct {
	HeaderOverride string
	FooterOverride string
	SectionOrder   []string
	DropSections   []string
	ExtraElements  []InteractiveElement
	ParseMode      domain.ParseMode
}

// ABVariant — один вариант теста с весом распределения.
type ABVariant struct {
	ID     string
	Weight int
	Mods   Modifications
}

// ABTest — активный A/B-тест шаблона отчёта.
// Инвариант: сумма весов вариантов больше нуля.
type ABTest struct {
	ID       string
	Variants []ABVariant
}

// AssignVariant детерминированно назначает вариант по хэшу (callerID, testID).
// Повторный вызов для той же пары всегда возвращает тот же вариант: бакет
// не переразыгрывается на время жизни теста. Второе значение false —
// тест некорректен (нулевая сумма весов) и не применяется.
func AssignVariant(callerID int64, test ABTest) (ABVariant, bool) {
	total := 0
	for _, v := range test.Variants {
		if v.Weight > 0 {
			total += v.Weight
		}
	}
	if total <= 0 {
		return ABVariant{}, false
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s", callerID, test.ID)
	bucket := int(h.Sum64() % uint64(total))

	for _, v := range test.Variants {
		if v.Weight <= 0 {
			continue
		}
		if bucket < v.Weight {
			metrics.IncABAssignment(test.ID, v.ID)
			return v, true
		}
		bucket -= v.Weight
	}
	return ABVariant{}, false
}
