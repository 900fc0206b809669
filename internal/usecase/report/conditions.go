package report

import "tg-portfolio-bot/internal/domain"

// PredicateKind — закрытый набор предикатов для условий показа
// интерактивных элементов. Условия описываются данными и вычисляются
// через switch, никакого исполнения кода из строк.
type PredicateKind string

const (
	PredAlways           PredicateKind = "always"
	PredHasDailyGain     PredicateKind = "has_daily_gain"
	PredHasDailyLoss     PredicateKind = "has_daily_loss"
	PredDrawdownAbove    PredicateKind = "drawdown_above"
	PredHasCriticalAlert PredicateKind = "has_critical_alert"
	PredHasPositions     PredicateKind = "has_positions"
	PredHasAnalysis      PredicateKind = "has_analysis"
)

// Condition — предикат с необязательным числовым порогом.
type Condition struct {
	Kind      PredicateKind
	Threshold float64
}

// Evaluate вычисляет предикат над снапшотом отчёта.
// Неизвестный предикат считается ложным: кнопка скрывается, а не падает рендер.
func (c Condition) Evaluate(d domain.ReportData) bool {
	switch c.Kind {
	case PredAlways:
		return true
	case PredHasDailyGain:
		return d.Portfolio.DailyChangePct > 0
	case PredHasDailyLoss:
		return d.Portfolio.DailyChangePct < 0
	case PredDrawdownAbove:
		return d.Portfolio.DrawdownPct >= c.Threshold
	case PredHasCriticalAlert:
		return d.HasCriticalAlert()
	case PredHasPositions:
		return len(d.Positions) > 0
	case PredHasAnalysis:
		return d.Analysis != nil
	default:
		return false
	}
}

// InteractiveElement — кнопка с условием включения в отчёт.
type InteractiveElement struct {
	Button    domain.InlineButton
	Condition Condition
}
