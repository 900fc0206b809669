package report

import (
	"fmt"
	"html"
	"strings"

	"tg-portfolio-bot/internal/domain"
)

// Priority — важность секции внутри шаблона.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

// Идентификаторы секций отчёта.
const (
	SectionSummary     = "summary"
	SectionPerformance = "performance"
	SectionPositions   = "positions"
	SectionAnalysis    = "analysis"
	SectionAlerts      = "alerts"
	SectionUnavailable = "unavailable"
)

// SectionSpec описывает одну секцию шаблона.
type SectionSpec struct {
	ID       string
	Title    string
	Emoji    string
	Priority Priority
}

// Template — шаблон отчёта для конкретного режима рынка.
// Строится заново на каждый рендер: это чистая проекция, не разделяемое состояние.
type Template struct {
	ID        string
	Regime    domain.MarketRegime
	Header    string
	Footer    string
	ParseMode domain.ParseMode
	Sections  []SectionSpec
	Elements  []InteractiveElement
}

// ClassifyRegime определяет режим отчёта по снапшоту. Просадка выше порога
// или критический алерт принудительно переводят отчёт в экстренный режим,
// какой бы режим рынка ни сообщил провайдер.
func ClassifyRegime(d domain.ReportData, emergencyDrawdownPct float64) domain.MarketRegime {
	if d.Portfolio.DrawdownPct >= emergencyDrawdownPct || d.HasCriticalAlert() {
		return domain.RegimeEmergency
	}
	switch d.Portfolio.MarketRegime {
	case domain.RegimeBull, domain.RegimeBear, domain.RegimeVolatile:
		return d.Portfolio.MarketRegime
	default:
		return domain.RegimeNeutral
	}
}

// TemplateForRegime возвращает базовый шаблон для режима.
func TemplateForRegime(regime domain.MarketRegime) Template {
	base := Template{
		ID:        "report_" + string(regime),
		Regime:    regime,
		ParseMode: domain.ParseModeRich,
		Sections: []SectionSpec{
			{ID: SectionSummary, Title: "Портфель", Emoji: "💼", Priority: PriorityHigh},
			{ID: SectionPerformance, Title: "Динамика", Emoji: "📈", Priority: PriorityMedium},
			{ID: SectionPositions, Title: "Позиции", Emoji: "📋", Priority: PriorityMedium},
			{ID: SectionAnalysis, Title: "Анализ", Emoji: "🤖", Priority: PriorityLow},
			{ID: SectionAlerts, Title: "Риски", Emoji: "⚠️", Priority: PriorityMedium},
			{ID: SectionUnavailable, Title: "Недоступные данные", Emoji: "ℹ️", Priority: PriorityLow},
		},
		Elements: []InteractiveElement{
			{
				Button:    domain.InlineButton{Text: "🔄 Обновить", CallbackData: domain.CallbackAction{Kind: domain.ActionReportNow}.Encode()},
				Condition: Condition{Kind: PredAlways},
			},
			{
				Button:    domain.InlineButton{Text: "📋 Позиции", CallbackData: domain.CallbackAction{Kind: domain.ActionPositions}.Encode()},
				Condition: Condition{Kind: PredHasPositions},
			},
		},
	}

	switch regime {
	case domain.RegimeEmergency:
		base.Header = "🚨 <b>Экстренный отчёт по портфелю</b>"
		base.Footer = "Проверьте позиции и риски как можно скорее."
		base.Sections = []SectionSpec{
			{ID: SectionAlerts, Title: "Риски", Emoji: "🚨", Priority: PriorityHigh},
			{ID: SectionSummary, Title: "Портфель", Emoji: "💼", Priority: PriorityHigh},
			{ID: SectionPerformance, Title: "Динамика", Emoji: "📉", Priority: PriorityHigh},
			{ID: SectionPositions, Title: "Позиции", Emoji: "📋", Priority: PriorityMedium},
			{ID: SectionUnavailable, Title: "Недоступные данные", Emoji: "ℹ️", Priority: PriorityLow},
		}
		base.Elements = append(base.Elements, InteractiveElement{
			Button:    domain.InlineButton{Text: "✅ Принято", CallbackData: domain.CallbackAction{Kind: domain.ActionAckAlert}.Encode()},
			Condition: Condition{Kind: PredHasCriticalAlert},
		})
	case domain.RegimeBull:
		base.Header = "📊 <b>Отчёт по портфелю</b> · рынок растёт"
		base.Footer = "Хорошего дня! Настроить рассылку: /schedule"
	case domain.RegimeBear:
		base.Header = "📊 <b>Отчёт по портфелю</b> · рынок под давлением"
		base.Footer = "Следите за рисками. Настроить рассылку: /schedule"
	case domain.RegimeVolatile:
		base.Header = "📊 <b>Отчёт по портфелю</b> · высокая волатильность"
		base.Footer = "Будьте осторожны с плечом. Настроить рассылку: /schedule"
	default:
		base.Header = "📊 <b>Отчёт по портфелю</b>"
		base.Footer = "Настроить рассылку: /schedule"
	}

	return base
}

// buildSection строит содержимое секции по данным снапшота.
// Пустая строка означает, что секции в отчёте не будет.
func buildSection(spec SectionSpec, d domain.ReportData, verbosity domain.Verbosity) string {
	switch spec.ID {
	case SectionSummary:
		return buildSummary(d)
	case SectionPerformance:
		return buildPerformance(d)
	case SectionPositions:
		return buildPositions(d, verbosity)
	case SectionAnalysis:
		return buildAnalysis(d, verbosity)
	case SectionAlerts:
		return buildAlerts(d)
	case SectionUnavailable:
		return buildUnavailable(d)
	default:
		return ""
	}
}

func buildSummary(d domain.ReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Стоимость портфеля: %.2f\n", d.Portfolio.TotalValue)
	fmt.Fprintf(&b, "Изменение за день: %s", formatPct(d.Portfolio.DailyChangePct))
	return b.String()
}

func buildPerformance(d domain.ReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Дневное изменение: %s\n", formatPct(d.Portfolio.DailyChangePct))
	fmt.Fprintf(&b, "Просадка от пика: %.1f%%", d.Portfolio.DrawdownPct)
	return b.String()
}

func buildPositions(d domain.ReportData, verbosity domain.Verbosity) string {
	if len(d.Positions) == 0 {
		return ""
	}
	limit := len(d.Positions)
	if verbosity == domain.VerbosityShort && limit > 3 {
		limit = 3
	}
	var b strings.Builder
	for i := 0; i < limit; i++ {
		p := d.Positions[i]
		fmt.Fprintf(&b, "• %s: %s", escapeHTML(p.Symbol), formatPct(p.PnLPct))
		if verbosity == domain.VerbosityDetailed {
			fmt.Fprintf(&b, " (вход %.2f → %.2f)", p.EntryPrice, p.CurrentPrice)
		}
		b.WriteString("\n")
	}
	if limit < len(d.Positions) {
		fmt.Fprintf(&b, "…и ещё %d", len(d.Positions)-limit)
	}
	return strings.TrimSpace(b.String())
}

func buildAnalysis(d domain.ReportData, verbosity domain.Verbosity) string {
	if d.Analysis == nil {
		return ""
	}
	summary := strings.TrimSpace(d.Analysis.Summary)
	if summary == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(escapeHTML(summary))
	if verbosity == domain.VerbosityDetailed && len(d.Analysis.Signals) > 0 {
		b.WriteString("\nСигналы:")
		for _, s := range d.Analysis.Signals {
			trimmed := strings.TrimSpace(s)
			if trimmed == "" {
				continue
			}
			b.WriteString("\n- " + escapeHTML(trimmed))
		}
	}
	return b.String()
}

func buildAlerts(d domain.ReportData) string {
	if len(d.Alerts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, a := range d.Alerts {
		marker := "•"
		switch a.Severity {
		case domain.SeverityCritical:
			marker = "🔴"
		case domain.SeverityWarning:
			marker = "🟡"
		}
		b.WriteString(marker + " " + escapeHTML(strings.TrimSpace(a.Text)) + "\n")
	}
	return strings.TrimSpace(b.String())
}

func buildUnavailable(d domain.ReportData) string {
	if len(d.Unavailable) == 0 {
		return ""
	}
	return fmt.Sprintf("Часть данных временно недоступна (%s), раздел будет восстановлен в следующем отчёте.", strings.Join(d.Unavailable, ", "))
}

func formatPct(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}
