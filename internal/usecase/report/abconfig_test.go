package report

import (
	"testing"

	"tg-portfolio-bot/internal/domain"
)

func TestParseTestsEmpty(t *testing.T) {
	tests, err := ParseTests("   ")
	if err != nil {
		t.Fatalf("пустой конфиг валиден: %v", err)
	}
	if tests != nil {
		t.Fatalf("для пустого конфига ожидали nil, получили %+v", tests)
	}
}

func TestParseTests(t *testing.T) {
	raw := `[{"id":"header_tone","variants":[
		{"id":"control","weight":50},
		{"id":"friendly","weight":50,"header":"Привет!","drop_sections":["analysis"],"parse_mode":"HTML"}
	]}]`
	tests, err := ParseTests(raw)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(tests) != 1 || tests[0].ID != "header_tone" {
		t.Fatalf("конфиг разобран неверно: %+v", tests)
	}
	if len(tests[0].Variants) != 2 {
		t.Fatalf("ожидали 2 варианта, получили %d", len(tests[0].Variants))
	}
	friendly := tests[0].Variants[1]
	if friendly.Mods.HeaderOverride != "Привет!" || friendly.Mods.ParseMode != domain.ParseModeRich {
		t.Fatalf("правки варианта потеряны: %+v", friendly.Mods)
	}
	if len(friendly.Mods.DropSections) != 1 || friendly.Mods.DropSections[0] != "analysis" {
		t.Fatalf("drop_sections разобран неверно: %+v", friendly.Mods.DropSections)
	}
}

func TestParseTestsRejectsZeroWeights(t *testing.T) {
	raw := `[{"id":"t1","variants":[{"id":"a","weight":0},{"id":"b","weight":0}]}]`
	if _, err := ParseTests(raw); err == nil {
		t.Fatalf("нулевая сумма весов должна отклоняться")
	}
}

func TestParseTestsRejectsBadParseMode(t *testing.T) {
	raw := `[{"id":"t1","variants":[{"id":"a","weight":1,"parse_mode":"MarkdownV3"}]}]`
	if _, err := ParseTests(raw); err == nil {
		t.Fatalf("неизвестный parse_mode должен отклоняться")
	}
}

func TestParseTestsRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseTests("{не json"); err == nil {
		t.Fatalf("битый JSON должен отклоняться")
	}
}
