package domain

import "time"

// Update — каноническое входящее событие платформы.
// Заполнено ровно одно из полей Message/Callback.
type Update struct {
	ID       int64
	Message  *InboundMessage
	Callback *InboundCallback
}

// Caller описывает отправителя события.
type Caller struct {
	ID       int64
	Username string
	Locale   string
}

// InboundMessage — входящее текстовое сообщение.
type InboundMessage struct {
	ID     int64
	From   Caller
	ChatID int64
	Text   string
}

// InboundCallback — нажатие inline-кнопки.
type InboundCallback struct {
	ID        string
	From      Caller
	ChatID    int64
	MessageID int64
	Data      string
}

// User описывает пользователя Telegram в системе.
type User struct {
	ID          int64
	TGUserID    int64
	Locale      string
	Timezone    string
	Role        UserRole
	Preferences UserPreferences
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Verbosity задаёт подробность отчёта.
type Verbosity string

const (
	VerbosityShort    Verbosity = "short"
	VerbosityNormal   Verbosity = "normal"
	VerbosityDetailed Verbosity = "detailed"
)

// UserPreferences хранит настройки персонализации отчётов.
type UserPreferences struct {
	SectionPriorities map[string]int `json:"section_priorities,omitempty"`
	DisabledSections  []string       `json:"disabled_sections,omitempty"`
	MinDailyChangePct float64        `json:"min_daily_change_pct,omitempty"`
	Verbosity         Verbosity      `json:"verbosity,omitempty"`
	EngagementScore   float64        `json:"engagement_score,omitempty"`
}

// MarketRegime — классификация текущего состояния рынка/портфеля.
type MarketRegime string

const (
	RegimeBull      MarketRegime = "bull"
	RegimeBear      MarketRegime = "bear"
	RegimeVolatile  MarketRegime = "volatile"
	RegimeNeutral   MarketRegime = "neutral"
	RegimeEmergency MarketRegime = "emergency"
)

// AlertSeverity — уровень важности риск-алерта.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// PortfolioSnapshot — срез состояния портфеля на момент генерации отчёта.
type PortfolioSnapshot struct {
	TotalValue     float64
	DailyChangePct float64
	DrawdownPct    float64
	MarketRegime   MarketRegime
}

// Position описывает открытую позицию.
type Position struct {
	ID           string
	Symbol       string
	Quantity     float64
	EntryPrice   float64
	CurrentPrice float64
	PnLPct       float64
}

// AIAnalysis — результат AI-анализа рынка.
type AIAnalysis struct {
	Summary    string
	Signals    []string
	Confidence float64
}

// RiskAlert — предупреждение риск-сервиса.
type RiskAlert struct {
	ID       string
	Severity AlertSeverity
	Text     string
}

// ReportData — неизменяемый снапшот данных для построения одного отчёта.
// Unavailable перечисляет провайдеров, данные которых получить не удалось.
type ReportData struct {
	Portfolio   PortfolioSnapshot
	Positions   []Position
	Analysis    *AIAnalysis
	Alerts      []RiskAlert
	Unavailable []string
	GeneratedAt time.Time
}

// HasCriticalAlert сообщает, есть ли в снапшоте критический алерт.
func (d ReportData) HasCriticalAlert() bool {
	for _, a := range d.Alerts {
		if a.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// ParseMode задаёт разметку исходящего сообщения.
type ParseMode string

const (
	ParseModePlain ParseMode = ""
	ParseModeBasic ParseMode = "Markdown"
	ParseModeRich  ParseMode = "HTML"
)

// InlineButton — одна inline-кнопка.
type InlineButton struct {
	Text         string
	CallbackData string
}

// InlineKeyboard — клавиатура из рядов кнопок.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// Message — готовое к отправке сообщение в пределах лимитов платформы.
type Message struct {
	Text               string
	ParseMode          ParseMode
	DisableLinkPreview bool
	ReplyMarkup        *InlineKeyboard
}

// SentReport — запись о доставленном отчёте.
type SentReport struct {
	ReportID   string
	CallerID   int64
	ChatID     int64
	ReportType string
	ReportData []byte
	SentAt     time.Time
}
