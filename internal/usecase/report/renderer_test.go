package report

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tg-portfolio-bot/internal/domain"
)

func testData() domain.ReportData {
	return domain.ReportData{
		Portfolio: domain.PortfolioSnapshot{
			TotalValue:     150000,
			DailyChangePct: 2.3,
			DrawdownPct:    4,
			MarketRegime:   domain.RegimeBull,
		},
		Positions: []domain.Position{
			{ID: "p1", Symbol: "SBER", PnLPct: 3.1, EntryPrice: 250, CurrentPrice: 258},
			{ID: "p2", Symbol: "GAZP", PnLPct: -1.2, EntryPrice: 160, CurrentPrice: 158},
		},
		Analysis: &domain.AIAnalysis{Summary: "Рынок в восходящем тренде", Signals: []string{"объёмы растут"}},
	}
}

func keyboardContains(kb *domain.InlineKeyboard, text string) bool {
	for _, row := range kb.Rows {
		for _, btn := range row {
			if btn.Text == text {
				return true
			}
		}
	}
	return false
}

func joinTexts(msgs []domain.Message) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Text
	}
	return strings.Join(parts, "\n\n")
}

func TestRenderEmergencyOnDrawdown(t *testing.T) {
	r := NewRenderer(zerolog.Nop(), 15)
	data := testData()
	data.Portfolio.DrawdownPct = 20
	data.Alerts = []domain.RiskAlert{{Severity: domain.SeverityWarning, Text: "просадка растёт"}}

	msgs, err := r.Render(42, data, domain.UserPreferences{}, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	text := joinTexts(msgs)
	if !strings.Contains(text, "Экстренный отчёт") {
		t.Fatalf("просадка выше порога должна включать экстренный режим:\n%s", text)
	}
	risks := strings.Index(text, "Риски")
	summary := strings.Index(text, "Портфель")
	if risks == -1 || summary == -1 || risks > summary {
		t.Fatalf("в экстренном отчёте секция рисков идёт первой:\n%s", text)
	}
}

func TestRenderEmergencyOnCriticalAlert(t *testing.T) {
	r := NewRenderer(zerolog.Nop(), 15)
	data := testData()
	data.Alerts = []domain.RiskAlert{{Severity: domain.SeverityCritical, Text: "маржин-колл"}}

	msgs, err := r.Render(42, data, domain.UserPreferences{}, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	text := joinTexts(msgs)
	if !strings.Contains(text, "Экстренный отчёт") {
		t.Fatalf("критический алерт должен включать экстренный режим даже при малой просадке")
	}
	last := msgs[len(msgs)-1]
	if last.ReplyMarkup == nil {
		t.Fatalf("ожидали клавиатуру на последнем сообщении")
	}
	if !keyboardContains(last.ReplyMarkup, "✅ Принято") {
		t.Fatalf("при критическом алерте ожидали кнопку подтверждения")
	}
}

func TestRenderKeyboardOnlyOnLastChunk(t *testing.T) {
	r := NewRenderer(zerolog.Nop(), 15)
	r.maxLen = 200
	data := testData()
	for i := 0; i < 30; i++ {
		data.Positions = append(data.Positions, domain.Position{Symbol: "TICKER", PnLPct: 1})
	}

	msgs, err := r.Render(42, data, domain.UserPreferences{Verbosity: domain.VerbosityDetailed}, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(msgs) < 2 {
		t.Fatalf("длинный отчёт должен разбиваться, получили %d сообщений", len(msgs))
	}
	for i, m := range msgs {
		if i < len(msgs)-1 && m.ReplyMarkup != nil {
			t.Fatalf("клавиатура должна быть только на последней части, найдена на %d", i)
		}
		if m.ParseMode != domain.ParseModeRich {
			t.Fatalf("все части должны нести режим разметки шаблона")
		}
	}
	if msgs[len(msgs)-1].ReplyMarkup == nil {
		t.Fatalf("последняя часть должна нести клавиатуру")
	}
}

func TestRenderSkipsDisabledSections(t *testing.T) {
	r := NewRenderer(zerolog.Nop(), 15)
	prefs := domain.UserPreferences{DisabledSections: []string{SectionPositions}}

	msgs, err := r.Render(42, testData(), prefs, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if strings.Contains(joinTexts(msgs), "<b>📋 Позиции</b>") {
		t.Fatalf("отключённая секция не должна попадать в отчёт")
	}
}

func TestRenderEmergencyIgnoresDisabled(t *testing.T) {
	r := NewRenderer(zerolog.Nop(), 15)
	data := testData()
	data.Alerts = []domain.RiskAlert{{Severity: domain.SeverityCritical, Text: "маржин-колл"}}
	prefs := domain.UserPreferences{DisabledSections: []string{SectionAlerts}}

	msgs, err := r.Render(42, data, prefs, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.Contains(joinTexts(msgs), "маржин-колл") {
		t.Fatalf("экстренный режим должен показывать риски вопреки отключению секции")
	}
}

func TestRenderSuppressesInsignificantPerformance(t *testing.T) {
	r := NewRenderer(zerolog.Nop(), 15)
	data := testData()
	data.Portfolio.DailyChangePct = 0.5
	prefs := domain.UserPreferences{MinDailyChangePct: 2}

	msgs, err := r.Render(42, data, prefs, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if strings.Contains(joinTexts(msgs), "Динамика") {
		t.Fatalf("незначимое дневное изменение должно скрывать секцию динамики")
	}

	// Экстренный режим игнорирует порог значимости.
	data.Portfolio.DrawdownPct = 20
	msgs, err = r.Render(42, data, prefs, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.Contains(joinTexts(msgs), "Динамика") {
		t.Fatalf("в экстренном режиме секция динамики обязательна")
	}
}

func TestRenderShortFormForLowEngagement(t *testing.T) {
	r := NewRenderer(zerolog.Nop(), 15)
	data := testData()
	for i := 0; i < 3; i++ {
		data.Positions = append(data.Positions, domain.Position{Symbol: "EXTRA", PnLPct: 0.5})
	}
	prefs := domain.UserPreferences{EngagementScore: 0.1}

	msgs, err := r.Render(42, data, prefs, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.Contains(joinTexts(msgs), "…и ещё 2") {
		t.Fatalf("малововлечённый пользователь должен получать усечённый список позиций:\n%s", joinTexts(msgs))
	}
}

func TestRenderAppliesVariantOverride(t *testing.T) {
	r := NewRenderer(zerolog.Nop(), 15)
	tests := []ABTest{{
		ID:       "header_tone",
		Variants: []ABVariant{{ID: "friendly", Weight: 100, Mods: Modifications{HeaderOverride: "👋 Ваш отчёт готов"}}},
	}}

	msgs, err := r.Render(42, testData(), domain.UserPreferences{}, tests)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.HasPrefix(msgs[0].Text, "👋 Ваш отчёт готов") {
		t.Fatalf("вариант теста должен подменять заголовок:\n%s", msgs[0].Text)
	}
}

type flakyProvider struct{}

func (flakyProvider) PortfolioSnapshot(context.Context, int64) (domain.PortfolioSnapshot, error) {
	return domain.PortfolioSnapshot{TotalValue: 100, MarketRegime: domain.RegimeNeutral}, nil
}
func (flakyProvider) Positions(context.Context, int64) ([]domain.Position, error) {
	return nil, domain.ErrDataUnavailable
}
func (flakyProvider) AIAnalysis(context.Context) (domain.AIAnalysis, error) {
	return domain.AIAnalysis{}, domain.ErrDataUnavailable
}
func (flakyProvider) RiskAlerts(context.Context, int64) ([]domain.RiskAlert, error) {
	return nil, nil
}

func TestCollectDegradesPerProvider(t *testing.T) {
	data := Collect(context.Background(), flakyProvider{}, 42)
	if len(data.Unavailable) != 2 {
		t.Fatalf("ожидали 2 недоступных источника, получили %v", data.Unavailable)
	}
	for _, name := range []string{"positions", "analysis"} {
		found := false
		for _, u := range data.Unavailable {
			if u == name {
				found = true
			}
		}
		if !found {
			t.Fatalf("источник %q должен быть помечен недоступным", name)
		}
	}
	if data.Portfolio.TotalValue != 100 {
		t.Fatalf("успешные источники должны сохраняться")
	}

	r := NewRenderer(zerolog.Nop(), 15)
	msgs, err := r.Render(42, data, domain.UserPreferences{}, nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.Contains(joinTexts(msgs), "временно недоступна") {
		t.Fatalf("отчёт должен упоминать недоступные данные")
	}
}
