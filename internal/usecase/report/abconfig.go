package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"tg-portfolio-bot/internal/domain"
)

// wire-структуры для AB_TESTS_JSON. Интерактивные элементы через конфиг
// не задаются: их условия — код, а не данные.
type abTestConfig struct {
	ID       string            `json:"id"`
	Variants []abVariantConfig `json:"variants"`
}

type abVariantConfig struct {
	ID           string   `json:"id"`
	Weight       int      `json:"weight"`
	Header       string   `json:"header,omitempty"`
	Footer       string   `json:"footer,omitempty"`
	SectionOrder []string `json:"section_order,omitempty"`
	DropSections []string `json:"drop_sections,omitempty"`
	ParseMode    string   `json:"parse_mode,omitempty"`
}

// ParseTests разбирает JSON-описание активных A/B-тестов из конфига.
// Пустая строка означает отсутствие тестов. Тест без идентификатора,
// с безымянным вариантом или нулевой суммой весов отклоняет весь конфиг:
// ошибку лучше поймать на старте сервиса, чем молча не раздавать варианты.
func ParseTests(raw string) ([]ABTest, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var wire []abTestConfig
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("ab-тесты: некорректный JSON: %w", err)
	}

	tests := make([]ABTest, 0, len(wire))
	for _, tc := range wire {
		if tc.ID == "" {
			return nil, fmt.Errorf("ab-тесты: тест без id")
		}
		total := 0
		variants := make([]ABVariant, 0, len(tc.Variants))
		for _, vc := range tc.Variants {
			if vc.ID == "" {
				return nil, fmt.Errorf("ab-тесты: безымянный вариант в тесте %q", tc.ID)
			}
			mode := domain.ParseMode(vc.ParseMode)
			switch mode {
			case domain.ParseModePlain, domain.ParseModeBasic, domain.ParseModeRich:
			default:
				return nil, fmt.Errorf("ab-тесты: неизвестный parse_mode %q в тесте %q", vc.ParseMode, tc.ID)
			}
			if vc.Weight > 0 {
				total += vc.Weight
			}
			variants = append(variants, ABVariant{
				ID:     vc.ID,
				Weight: vc.Weight,
				Mods: Modifications{
					HeaderOverride: vc.Header,
					FooterOverride: vc.Footer,
					SectionOrder:   vc.SectionOrder,
					DropSections:   vc.DropSections,
					ParseMode:      mode,
				},
			})
		}
		if total <= 0 {
			return nil, fmt.Errorf("ab-тесты: нулевая сумма весов в тесте %q", tc.ID)
		}
		tests = append(tests, ABTest{ID: tc.ID, Variants: variants})
	}
	return tests, nil
}
