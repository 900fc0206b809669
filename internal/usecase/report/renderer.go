package report

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/metrics"
)

// Renderer превращает снапшот данных и настройки пользователя в готовые
// к отправке сообщения. Рендер — чистое вычисление: сетевых вызовов нет.
type Renderer struct {
	log                  zerolog.Logger
	emergencyDrawdownPct float64
	maxLen               int
}

// NewRenderer создаёт рендерер. emergencyDrawdownPct — порог просадки,
// переводящий отчёт в экстренный режим.
func NewRenderer(log zerolog.Logger, emergencyDrawdownPct float64) *Renderer {
	return &Renderer{
		log:                  log,
		emergencyDrawdownPct: emergencyDrawdownPct,
		maxLen:               MessageLimit,
	}
}

// Render строит отчёт: режим → шаблон → A/B-варианты → персонализация →
// композиция → разбиение на части → кнопки на последней части → валидация.
// При ошибке основного конвейера откатывается на упрощённый шаблон.
func (r *Renderer) Render(callerID int64, d domain.ReportData, prefs domain.UserPreferences, tests []ABTest) ([]domain.Message, error) {
	start := time.Now()
	defer func() {
		metrics.RenderSeconds.Observe(time.Since(start).Seconds())
	}()

	regime := ClassifyRegime(d, r.emergencyDrawdownPct)
	tpl := TemplateForRegime(regime)

	for _, test := range tests {
		variant, ok := AssignVariant(callerID, test)
		if !ok {
			r.log.Warn().Str("test", test.ID).Msg("render: у A/B-теста нулевая сумма весов, пропускаем")
			continue
		}
		tpl = applyVariant(tpl, variant.Mods)
	}

	msgs, err := r.composeMessages(tpl, d, prefs, regime)
	if err == nil {
		return msgs, nil
	}
	r.log.Error().Err(err).Str("regime", string(regime)).Msg("render: основной шаблон отклонён, переходим на упрощённый")

	fallback := Template{
		ID:        "report_fallback",
		Regime:    regime,
		Header:    "📊 <b>Отчёт по портфелю</b>",
		ParseMode: domain.ParseModeRich,
		Sections: []SectionSpec{
			{ID: SectionSummary, Title: "Портфель", Emoji: "💼", Priority: PriorityHigh},
			{ID: SectionUnavailable, Title: "Недоступные данные", Emoji: "ℹ️", Priority: PriorityLow},
		},
	}
	msgs, err = r.composeMessages(fallback, d, domain.UserPreferences{Verbosity: domain.VerbosityShort}, regime)
	if err != nil {
		return nil, domain.ErrRenderFailed
	}
	return msgs, nil
}

func (r *Renderer) composeMessages(tpl Template, d domain.ReportData, prefs domain.UserPreferences, regime domain.MarketRegime) ([]domain.Message, error) {
	sections := personalizeSections(tpl, d, prefs, regime)

	var parts []string
	if header := strings.TrimSpace(tpl.Header); header != "" {
		parts = append(parts, header)
	}
	parts = append(parts, sections...)
	if footer := strings.TrimSpace(tpl.Footer); footer != "" {
		parts = append(parts, footer)
	}
	text := strings.Join(parts, "\n\n")

	chunks := SplitText(text, r.maxLen)
	if len(chunks) == 0 {
		chunks = []string{"Отчёт пока пуст."}
	}

	keyboard := buildKeyboard(tpl.Elements, d)

	msgs := make([]domain.Message, 0, len(chunks))
	for i, chunk := range chunks {
		msg := domain.Message{
			Text:               chunk,
			ParseMode:          tpl.ParseMode,
			DisableLinkPreview: true,
		}
		if i == len(chunks)-1 {
			msg.ReplyMarkup = keyboard
		}
		if err := ValidateMessage(msg); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// personalizeSections применяет настройки пользователя: отключённые секции,
// приоритеты, порог значимости и подробность по вовлечённости. Экстренный
// режим принудительно оставляет секции рисков и динамики.
func personalizeSections(tpl Template, d domain.ReportData, prefs domain.UserPreferences, regime domain.MarketRegime) []string {
	verbosity := effectiveVerbosity(prefs)
	emergency := regime == domain.RegimeEmergency

	disabled := make(map[string]struct{}, len(prefs.DisabledSections))
	for _, id := range prefs.DisabledSections {
		disabled[id] = struct{}{}
	}

	type built struct {
		spec    SectionSpec
		content string
		order   int
	}
	var kept []built
	for i, spec := range tpl.Sections {
		if _, off := disabled[spec.ID]; off && !emergency {
			continue
		}
		if spec.ID == SectionPerformance && !emergency {
			if abs(d.Portfolio.DailyChangePct) < prefs.MinDailyChangePct {
				continue
			}
		}
		content := buildSection(spec, d, verbosity)
		if content == "" {
			continue
		}
		kept = append(kept, built{spec: spec, content: content, order: i})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		pi := sectionPriority(kept[i].spec, prefs)
		pj := sectionPriority(kept[j].spec, prefs)
		if pi != pj {
			return pi > pj
		}
		return kept[i].order < kept[j].order
	})

	sections := make([]string, 0, len(kept))
	for _, b := range kept {
		title := b.spec.Title
		if b.spec.Emoji != "" {
			title = b.spec.Emoji + " " + title
		}
		sections = append(sections, "<b>"+title+"</b>\n"+b.content)
	}
	return sections
}

func sectionPriority(spec SectionSpec, prefs domain.UserPreferences) int {
	if p, ok := prefs.SectionPriorities[spec.ID]; ok {
		return p
	}
	return int(spec.Priority)
}

func effectiveVerbosity(prefs domain.UserPreferences) domain.Verbosity {
	if prefs.Verbosity != "" {
		return prefs.Verbosity
	}
	// Малововлечённым пользователям отправляем короткую форму.
	if prefs.EngagementScore > 0 && prefs.EngagementScore < 0.3 {
		return domain.VerbosityShort
	}
	return domain.VerbosityNormal
}

func buildKeyboard(elements []InteractiveElement, d domain.ReportData) *domain.InlineKeyboard {
	var buttons []domain.InlineButton
	for _, el := range elements {
		if el.Condition.Evaluate(d) {
			buttons = append(buttons, el.Button)
		}
	}
	if len(buttons) == 0 {
		return nil
	}
	const perRow = 2
	kb := &domain.InlineKeyboard{}
	for i := 0; i < len(buttons); i += perRow {
		end := i + perRow
		if end > len(buttons) {
			end = len(buttons)
		}
		kb.Rows = append(kb.Rows, buttons[i:end])
	}
	return kb
}

// applyVariant накладывает правки варианта на копию шаблона.
func applyVariant(tpl Template, mods Modifications) Template {
	if mods.HeaderOverride != "" {
		tpl.Header = mods.HeaderOverride
	}
	if mods.FooterOverride != "" {
		tpl.Footer = mods.FooterOverride
	}
	if mods.ParseMode != "" {
		tpl.ParseMode = mods.ParseMode
	}
	if len(mods.DropSections) > 0 {
		drop := make(map[string]struct{}, len(mods.DropSections))
		for _, id := range mods.DropSections {
			drop[id] = struct{}{}
		}
		sections := tpl.Sections[:0:0]
		for _, spec := range tpl.Sections {
			if _, ok := drop[spec.ID]; !ok {
				sections = append(sections, spec)
			}
		}
		tpl.Sections = sections
	}
	if len(mods.SectionOrder) > 0 {
		byID := make(map[string]SectionSpec, len(tpl.Sections))
		for _, spec := range tpl.Sections {
			byID[spec.ID] = spec
		}
		ordered := make([]SectionSpec, 0, len(tpl.Sections))
		seen := make(map[string]struct{}, len(tpl.Sections))
		for _, id := range mods.SectionOrder {
			if spec, ok := byID[id]; ok {
				ordered = append(ordered, spec)
				seen[id] = struct{}{}
			}
		}
		for _, spec := range tpl.Sections {
			if _, ok := seen[spec.ID]; !ok {
				ordered = append(ordered, spec)
			}
		}
		tpl.Sections = ordered
	}
	if len(mods.ExtraElements) > 0 {
		tpl.Elements = append(append([]InteractiveElement(nil), tpl.Elements...), mods.ExtraElements...)
	}
	return tpl
}

// Collect собирает снапшот данных у провайдера, деградируя по частям:
// отказ одного источника помечается в Unavailable и не срывает отчёт.
func Collect(ctx context.Context, provider domain.DataProvider, callerID int64) domain.ReportData {
	data := domain.ReportData{GeneratedAt: time.Now().UTC()}

	if snapshot, err := provider.PortfolioSnapshot(ctx, callerID); err != nil {
		data.Unavailable = append(data.Unavailable, "portfolio")
	} else {
		data.Portfolio = snapshot
	}

	if positions, err := provider.Positions(ctx, callerID); err != nil {
		data.Unavailable = append(data.Unavailable, "positions")
	} else {
		data.Positions = positions
	}

	if analysis, err := provider.AIAnalysis(ctx); err != nil {
		data.Unavailable = append(data.Unavailable, "analysis")
	} else {
		data.Analysis = &analysis
	}

	if alerts, err := provider.RiskAlerts(ctx, callerID); err != nil {
		data.Unavailable = append(data.Unavailable, "alerts")
	} else {
		data.Alerts = alerts
	}

	return data
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
