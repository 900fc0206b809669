package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-portfolio-bot/internal/adapters/telegram"
	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/metrics"
	"tg-portfolio-bot/internal/usecase/schedule"
	"tg-portfolio-bot/internal/usecase/session"
)

// Command описывает запись реестра команд бота.
// Hidden исключает команду из публикуемого меню платформы.
type Command struct {
	Name         string
	Description  string
	RequiresAuth bool
	RequiredTier domain.UserRole
	Cooldown     time.Duration
	Hidden       bool
}

type commandHandler func(ctx context.Context, user domain.User, chatID int64, payload string)

type cooldownKey struct {
	callerID int64
	command  string
}

type manualCounter struct {
	day   time.Time
	count int
}

// Router разбирает входящие события и диспатчит их по реестру команд.
// Паники обработчиков гасятся на границе диспатча: один сбойный апдейт
// не роняет процесс и получает общий ответ об ошибке.
type Router struct {
	sender     *telegram.Sender
	users      domain.UserRepo
	scheduleUC *schedule.Service
	provider   domain.DataProvider
	queue      domain.ReportQueue
	sessions   *session.Store
	log        zerolog.Logger

	commands []Command
	handlers map[string]commandHandler

	mu        sync.Mutex
	cooldowns map[cooldownKey]time.Time

	manualMu sync.Mutex
	manual   map[int64]manualCounter

	now func() time.Time
}

// NewRouter создаёт роутер и наполняет реестр команд.
func NewRouter(sender *telegram.Sender, users domain.UserRepo, scheduleUC *schedule.Service, provider domain.DataProvider, queue domain.ReportQueue, sessions *session.Store, log zerolog.Logger) *Router {
	r := &Router{
		sender:     sender,
		users:      users,
		scheduleUC: scheduleUC,
		provider:   provider,
		queue:      queue,
		sessions:   sessions,
		log:        log,
		cooldowns:  make(map[cooldownKey]time.Time),
		manual:     make(map[int64]manualCounter),
		now:        time.Now,
	}
	r.commands = []Command{
		{Name: "start", Description: "Начать работу с ботом"},
		{Name: "help", Description: "Список команд"},
		{Name: "report", Description: "Отчёт по портфелю сейчас", RequiresAuth: true, Cooldown: 10 * time.Second},
		{Name: "positions", Description: "Открытые позиции", RequiresAuth: true, Cooldown: 5 * time.Second},
		{Name: "schedule", Description: "Настроить регулярный отчёт", RequiresAuth: true},
		{Name: "jobs", Description: "Мои расписания", RequiresAuth: true},
		{Name: "timezone", Description: "Указать часовой пояс", RequiresAuth: true},
		{Name: "stop", Description: "Отключить все рассылки", RequiresAuth: true},
		{Name: "announce", Description: "Объявление всем подписчикам", RequiresAuth: true, RequiredTier: domain.UserRoleDeveloper, Hidden: true},
	}
	r.handlers = map[string]commandHandler{
		"start":     r.handleStart,
		"help":      r.handleHelp,
		"report":    r.handleReport,
		"positions": r.handlePositions,
		"schedule":  r.handleSchedule,
		"jobs":      r.handleJobs,
		"timezone":  r.handleTimezone,
		"stop":      r.handleStop,
		"announce":  r.handleAnnounce,
	}
	return r
}

// Commands возвращает реестр для публикации в меню платформы.
func (r *Router) Commands() []tgbotapi.BotCommand {
	out := make([]tgbotapi.BotCommand, 0, len(r.commands))
	for _, cmd := range r.commands {
		if cmd.Hidden {
			continue
		}
		out = append(out, tgbotapi.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	return out
}

// Dispatch обрабатывает одно событие. Граница ошибок обработчиков.
func (r *Router) Dispatch(ctx context.Context, upd domain.Update) {
	var chatID, callerID int64
	switch {
	case upd.Message != nil:
		chatID, callerID = upd.Message.ChatID, upd.Message.From.ID
	case upd.Callback != nil:
		chatID, callerID = upd.Callback.ChatID, upd.Callback.From.ID
	default:
		return
	}

	// Каждое событие продлевает сессию диалога.
	r.sessions.Touch(callerID)

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Int64("update", upd.ID).Msg("router: паника обработчика")
			r.reply(ctx, callerID, chatID, "Произошла внутренняя ошибка. Попробуйте ещё раз позже.", nil)
		}
	}()

	if upd.Message != nil {
		r.handleMessage(ctx, upd.Message)
		return
	}
	r.handleCallback(ctx, upd.Callback)
}

func (r *Router) handleMessage(ctx context.Context, msg *domain.InboundMessage) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		if r.tryHandlePendingInput(ctx, msg.From, msg.ChatID, text) {
			return
		}
		r.reply(ctx, msg.From.ID, msg.ChatID, "Не понимаю. Используйте /help или меню ниже.", r.mainKeyboard())
		return
	}

	name, payload := splitCommand(text)
	cmd, ok := r.lookup(name)
	if !ok {
		r.reply(ctx, msg.From.ID, msg.ChatID, "Неизвестная команда. Используйте /help", nil)
		return
	}
	r.runCommand(ctx, cmd, msg.From, msg.ChatID, payload)
}

func (r *Router) runCommand(ctx context.Context, cmd Command, from domain.Caller, chatID int64, payload string) {
	var user domain.User
	if cmd.Name == "start" {
		upserted, err := r.users.UpsertByTGID(from.ID, from.Locale)
		if err != nil {
			r.log.Error().Err(err).Int64("user", from.ID).Msg("router: не удалось сохранить профиль")
			r.reply(ctx, from.ID, chatID, "Не удалось сохранить профиль. Попробуйте позже.", nil)
			return
		}
		user = upserted
	} else if cmd.RequiresAuth {
		found, err := r.users.GetByTGID(from.ID)
		if err != nil {
			r.reply(ctx, from.ID, chatID, "Сначала отправьте /start, чтобы зарегистрироваться.", nil)
			return
		}
		user = found
	}
	if user.TGUserID == 0 {
		// Команды без авторизации работают с анонимным профилем.
		user.TGUserID = from.ID
	}

	if cmd.RequiredTier != "" && !user.Role.AtLeast(cmd.RequiredTier) {
		r.reply(ctx, from.ID, chatID, fmt.Sprintf("Команда /%s доступна с тарифа %s.", cmd.Name, domain.PlanForRole(cmd.RequiredTier).Name), nil)
		return
	}

	if wait, ok := r.checkCooldown(from.ID, cmd); !ok {
		r.reply(ctx, from.ID, chatID, fmt.Sprintf("Не так быстро: подождите %d сек.", int(wait.Seconds())+1), nil)
		return
	}

	handler, ok := r.handlers[cmd.Name]
	if !ok {
		r.reply(ctx, from.ID, chatID, "Команда пока не реализована.", nil)
		return
	}
	handler(ctx, user, chatID, payload)
}

// checkCooldown пропускает команду не чаще её Cooldown для одного пользователя.
func (r *Router) checkCooldown(callerID int64, cmd Command) (time.Duration, bool) {
	if cmd.Cooldown <= 0 {
		return 0, true
	}
	key := cooldownKey{callerID: callerID, command: cmd.Name}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.cooldowns[key]; ok {
		if elapsed := now.Sub(last); elapsed < cmd.Cooldown {
			return cmd.Cooldown - elapsed, false
		}
	}
	r.cooldowns[key] = now
	return 0, true
}

func (r *Router) lookup(name string) (Command, bool) {
	for _, cmd := range r.commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return Command{}, false
}

func splitCommand(text string) (string, string) {
	fields := strings.SplitN(strings.TrimPrefix(text, "/"), " ", 2)
	name := fields[0]
	// /schedule@portfolio_bot → schedule
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	payload := ""
	if len(fields) > 1 {
		payload = strings.TrimSpace(fields[1])
	}
	return strings.ToLower(name), payload
}

// --- команды ---

func (r *Router) handleStart(ctx context.Context, user domain.User, chatID int64, _ string) {
	plan := user.Plan()
	lines := []string{
		"👋 Добро пожаловать в Portfolio Bot!",
		"",
		fmt.Sprintf("Ваш тариф: %s.", plan.Name),
		"",
		"Что умеет бот:",
		"• /report — отчёт по портфелю прямо сейчас.",
		"• /positions — открытые позиции.",
		"• /schedule daily 09:00 — регулярный отчёт по расписанию.",
		"• /timezone Europe/Moscow — часовой пояс для рассылок.",
		"",
		"Полный список команд — в /help.",
	}
	r.reply(ctx, user.TGUserID, chatID, strings.Join(lines, "\n"), r.mainKeyboard())
}

func (r *Router) handleHelp(ctx context.Context, user domain.User, chatID int64, _ string) {
	lines := []string{
		"📖 Команды:",
		"",
		"Отчёты:",
		"• /report — собрать отчёт сейчас.",
		"• /positions — открытые позиции.",
		"",
		"Расписание:",
		"• /schedule daily 09:00 — ежедневный отчёт.",
		"• /schedule weekly MON 09:00 — еженедельный.",
		"• /schedule monthly 1 09:00 — ежемесячный.",
		"• /jobs — список расписаний и их переключение.",
		"• /stop — выключить все рассылки.",
		"",
		"Настройки:",
		"• /timezone Europe/Moscow — часовой пояс.",
	}
	r.reply(ctx, user.TGUserID, chatID, strings.Join(lines, "\n"), r.mainKeyboard())
}

func (r *Router) handleReport(ctx context.Context, user domain.User, chatID int64, _ string) {
	if !r.reserveManualReport(user) {
		plan := user.Plan()
		r.reply(ctx, user.TGUserID, chatID, fmt.Sprintf("Лимит ручных отчётов для тарифа %s — %d в сутки. Попробуйте завтра или обновите тариф.", plan.Name, plan.ManualDailyLimit), nil)
		return
	}

	now := r.now().UTC()
	job := domain.ReportJob{
		CallerID:    user.TGUserID,
		ChatID:      chatID,
		RequestedAt: now,
		Cause:       domain.ReportCauseManual,
	}
	if err := r.queue.Enqueue(ctx, job); err != nil {
		r.log.Error().Err(err).Int64("user", user.TGUserID).Msg("router: не удалось поставить отчёт в очередь")
		r.reply(ctx, user.TGUserID, chatID, "Не удалось поставить отчёт в очередь, попробуйте позже.", nil)
		return
	}
	metrics.IncReportOverall()
	metrics.IncReportForUser(user.TGUserID)
	r.reply(ctx, user.TGUserID, chatID, "Собираем отчёт по портфелю, отправим его в ближайшее время.", nil)
}

// reserveManualReport учитывает суточный лимит ручных отчётов тарифа.
func (r *Router) reserveManualReport(user domain.User) bool {
	limit := user.Plan().ManualDailyLimit
	if limit <= 0 {
		return true
	}
	today := r.now().UTC().Truncate(24 * time.Hour)

	r.manualMu.Lock()
	defer r.manualMu.Unlock()
	counter := r.manual[user.TGUserID]
	if !counter.day.Equal(today) {
		counter = manualCounter{day: today}
	}
	if counter.count >= limit {
		return false
	}
	counter.count++
	r.manual[user.TGUserID] = counter
	return true
}

func (r *Router) handlePositions(ctx context.Context, user domain.User, chatID int64, _ string) {
	positions, err := r.provider.Positions(ctx, user.TGUserID)
	if err != nil {
		r.reply(ctx, user.TGUserID, chatID, "Данные по позициям временно недоступны. Попробуйте позже.", nil)
		return
	}
	if len(positions) == 0 {
		r.reply(ctx, user.TGUserID, chatID, "Открытых позиций нет.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("📈 Открытые позиции:\n")
	for i, pos := range positions {
		fmt.Fprintf(&b, "%d. %s — %.4f шт, P&L %+.2f%%\n", i+1, pos.Symbol, pos.Quantity, pos.PnLPct)
	}

	kb := &domain.InlineKeyboard{}
	for _, pos := range positions {
		action := domain.CallbackAction{Kind: domain.ActionClosePosition, ID: pos.ID}
		kb.Rows = append(kb.Rows, []domain.InlineButton{{
			Text:         "✖ Закрыть " + pos.Symbol,
			CallbackData: action.Encode(),
		}})
	}
	r.reply(ctx, user.TGUserID, chatID, b.String(), kb)
}

func (r *Router) handleSchedule(ctx context.Context, user domain.User, chatID int64, payload string) {
	if payload == "" {
		r.sessions.SetCommand(user.TGUserID, "schedule")
		lines := []string{
			"🗓 Отправьте расписание в одном из форматов:",
			"• daily 09:00",
			"• weekly MON 09:00",
			"• monthly 1 09:00",
		}
		r.reply(ctx, user.TGUserID, chatID, strings.Join(lines, "\n"), schedulePresetKeyboard())
		return
	}
	r.applySchedule(ctx, user, chatID, payload)
}

func (r *Router) applySchedule(ctx context.Context, user domain.User, chatID int64, payload string) {
	fields := strings.Fields(payload)
	if len(fields) < 2 {
		r.reply(ctx, user.TGUserID, chatID, "Формат: /schedule daily 09:00 (или weekly MON 09:00, monthly 1 09:00).", nil)
		return
	}
	jobType := domain.JobType(strings.ToLower(fields[0]))
	spec := strings.Join(fields[1:], " ")
	switch jobType {
	case domain.JobDaily, domain.JobWeekly, domain.JobMonthly:
	default:
		r.reply(ctx, user.TGUserID, chatID, "Неизвестный тип расписания. Доступны: daily, weekly, monthly.", nil)
		return
	}

	job, err := r.scheduleUC.Schedule(ctx, user.TGUserID, chatID, jobType, spec, user.Timezone)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrJobLimit):
			r.reply(ctx, user.TGUserID, chatID, fmt.Sprintf("Тариф %s позволяет до %d расписаний. Выключите лишнее через /jobs.", user.Plan().Name, user.Plan().ScheduledJobs), nil)
		case errors.Is(err, schedule.ErrInvalidSpec):
			r.reply(ctx, user.TGUserID, chatID, "Не удалось разобрать расписание. Пример: /schedule daily 09:00", nil)
		case errors.Is(err, schedule.ErrInvalidTimezone):
			r.reply(ctx, user.TGUserID, chatID, "Часовой пояс в профиле некорректен. Задайте его заново: /timezone Europe/Moscow", nil)
		default:
			r.log.Error().Err(err).Int64("user", user.TGUserID).Msg("router: не удалось сохранить расписание")
			r.reply(ctx, user.TGUserID, chatID, "Не удалось сохранить расписание. Попробуйте позже.", nil)
		}
		return
	}
	r.sessions.ClearCommand(user.TGUserID)

	tz := job.Timezone
	if tz == "" {
		tz = "UTC"
	}
	r.reply(ctx, user.TGUserID, chatID, fmt.Sprintf("Готово: %s отчёт по расписанию «%s» (%s). Ближайший запуск — %s.",
		jobTypeLabel(job.Type), job.Spec, tz, job.NextRun.Format("02.01 15:04")), nil)
}

func (r *Router) handleJobs(ctx context.Context, user domain.User, chatID int64, _ string) {
	jobs, err := r.scheduleUC.ListForCaller(user.TGUserID)
	if err != nil {
		r.reply(ctx, user.TGUserID, chatID, "Не удалось получить расписания. Попробуйте позже.", nil)
		return
	}
	if len(jobs) == 0 {
		r.reply(ctx, user.TGUserID, chatID, "Расписаний пока нет. Создайте первое: /schedule daily 09:00", nil)
		return
	}

	var b strings.Builder
	b.WriteString("🗓 Ваши расписания:\n")
	kb := &domain.InlineKeyboard{}
	for i, job := range jobs {
		status := "выключено"
		if job.Enabled {
			status = "включено"
		}
		fmt.Fprintf(&b, "%d. %s «%s» — %s\n", i+1, jobTypeLabel(job.Type), job.Spec, status)

		value := "on"
		label := "▶️ Включить " + jobTypeLabel(job.Type)
		if job.Enabled {
			value = "off"
			label = "⏸ Выключить " + jobTypeLabel(job.Type)
		}
		action := domain.CallbackAction{Kind: domain.ActionJobToggle, ID: job.ID, Value: value}
		kb.Rows = append(kb.Rows, []domain.InlineButton{{Text: label, CallbackData: action.Encode()}})
	}
	r.reply(ctx, user.TGUserID, chatID, b.String(), kb)
}

func (r *Router) handleTimezone(ctx context.Context, user domain.User, chatID int64, payload string) {
	if payload == "" {
		r.sessions.SetCommand(user.TGUserID, "timezone")
		r.reply(ctx, user.TGUserID, chatID, "Отправьте часовой пояс в формате IANA, например Europe/Moscow.", nil)
		return
	}
	if _, err := time.LoadLocation(payload); err != nil {
		r.reply(ctx, user.TGUserID, chatID, "Некорректный часовой пояс. Пример: Europe/Moscow", nil)
		return
	}
	if err := r.users.UpdateTimezone(user.ID, payload); err != nil {
		r.log.Error().Err(err).Int64("user", user.TGUserID).Msg("router: не удалось сохранить часовой пояс")
		r.reply(ctx, user.TGUserID, chatID, "Не удалось сохранить часовой пояс. Попробуйте позже.", nil)
		return
	}
	r.sessions.ClearCommand(user.TGUserID)
	r.reply(ctx, user.TGUserID, chatID, fmt.Sprintf("Часовой пояс обновлён: %s.", payload), nil)
}

func (r *Router) handleStop(ctx context.Context, user domain.User, chatID int64, _ string) {
	if err := r.scheduleUC.DisableAll(user.TGUserID); err != nil {
		r.reply(ctx, user.TGUserID, chatID, "Не удалось отключить рассылки. Попробуйте позже.", nil)
		return
	}
	r.reply(ctx, user.TGUserID, chatID, "Все рассылки выключены. Вернуть их можно через /jobs.", nil)
}

// handleAnnounce рассылает объявление во все чаты с включёнными расписаниями.
// Команда скрыта из меню и доступна только тарифу Developer.
func (r *Router) handleAnnounce(ctx context.Context, user domain.User, chatID int64, payload string) {
	if payload == "" {
		r.reply(ctx, user.TGUserID, chatID, "Формат: /announce текст объявления.", nil)
		return
	}
	chatIDs, err := r.scheduleUC.EnabledChatIDs()
	if err != nil {
		r.log.Error().Err(err).Msg("router: не удалось получить получателей объявления")
		r.reply(ctx, user.TGUserID, chatID, "Не удалось получить список получателей. Попробуйте позже.", nil)
		return
	}
	if len(chatIDs) == 0 {
		r.reply(ctx, user.TGUserID, chatID, "Получателей нет: ни одного включённого расписания.", nil)
		return
	}
	if err := r.sender.Broadcast(ctx, chatIDs, domain.Message{Text: "📢 " + payload, DisableLinkPreview: true}); err != nil {
		r.log.Error().Err(err).Msg("router: рассылка объявления прервана")
		return
	}
	r.reply(ctx, user.TGUserID, chatID, fmt.Sprintf("Объявление отправлено в %d чатов.", len(chatIDs)), nil)
}

// tryHandlePendingInput продолжает диалог команды, ожидающей ввода.
func (r *Router) tryHandlePendingInput(ctx context.Context, from domain.Caller, chatID int64, text string) bool {
	command, ok := r.sessions.CurrentCommand(from.ID)
	if !ok {
		return false
	}
	user, err := r.users.GetByTGID(from.ID)
	if err != nil {
		r.sessions.ClearCommand(from.ID)
		return false
	}
	switch command {
	case "schedule":
		// Голое время трактуем как ежедневное расписание.
		if !strings.ContainsAny(text, " ") {
			text = "daily " + text
		}
		r.applySchedule(ctx, user, chatID, text)
		return true
	case "timezone":
		r.handleTimezone(ctx, user, chatID, text)
		return true
	default:
		r.sessions.ClearCommand(from.ID)
		return false
	}
}

// --- callbacks ---

func (r *Router) handleCallback(ctx context.Context, cb *domain.InboundCallback) {
	defer r.sender.AnswerCallback(cb.ID)

	action, err := domain.DecodeCallback(cb.Data)
	if err != nil {
		// Старые кнопки могли нести иной формат: пробуем первый сегмент.
		first := cb.Data
		if idx := strings.Index(first, ":"); idx >= 0 {
			first = first[:idx]
		}
		action, err = domain.DecodeCallback(first)
		if err != nil {
			r.log.Warn().Str("data", cb.Data).Int64("user", cb.From.ID).Msg("router: неизвестное действие кнопки")
			r.reply(ctx, cb.From.ID, cb.ChatID, "Кнопка устарела. Вот главное меню:", r.mainKeyboard())
			return
		}
	}

	user, err := r.users.GetByTGID(cb.From.ID)
	if err != nil {
		r.reply(ctx, cb.From.ID, cb.ChatID, "Сначала отправьте /start, чтобы зарегистрироваться.", nil)
		return
	}

	switch action.Kind {
	case domain.ActionMainMenu:
		r.reply(ctx, cb.From.ID, cb.ChatID, "Главное меню:", r.mainKeyboard())
	case domain.ActionHelp:
		r.handleHelp(ctx, user, cb.ChatID, "")
	case domain.ActionReportNow:
		r.handleReport(ctx, user, cb.ChatID, "")
	case domain.ActionPositions:
		r.handlePositions(ctx, user, cb.ChatID, "")
	case domain.ActionScheduleMenu:
		r.handleSchedule(ctx, user, cb.ChatID, "")
	case domain.ActionSetTime:
		// Кодек режет "set_time:09:00" на ID и Value по двоеточию — склеиваем обратно.
		value := action.ID
		if action.Value != "" {
			if value != "" {
				value += ":" + action.Value
			} else {
				value = action.Value
			}
		}
		r.applySchedule(ctx, user, cb.ChatID, "daily "+value)
	case domain.ActionJobToggle:
		enabled := action.Value != "off"
		if err := r.scheduleUC.Toggle(user.TGUserID, action.ID, enabled); err != nil {
			r.reply(ctx, cb.From.ID, cb.ChatID, "Расписание не найдено.", nil)
			return
		}
		if enabled {
			r.reply(ctx, cb.From.ID, cb.ChatID, "Расписание включено.", nil)
		} else {
			r.reply(ctx, cb.From.ID, cb.ChatID, "Расписание выключено.", nil)
		}
	case domain.ActionClosePosition:
		r.reply(ctx, cb.From.ID, cb.ChatID, fmt.Sprintf("Заявка на закрытие позиции %s передана в торговый сервис.", action.ID), nil)
	case domain.ActionAckAlert:
		r.reply(ctx, cb.From.ID, cb.ChatID, "Предупреждение отмечено как прочитанное.", nil)
	default:
		r.reply(ctx, cb.From.ID, cb.ChatID, "Кнопка устарела. Вот главное меню:", r.mainKeyboard())
	}
}

// --- вспомогательное ---

func (r *Router) reply(ctx context.Context, callerID, chatID int64, text string, keyboard *domain.InlineKeyboard) {
	msgID, err := r.sender.SendText(ctx, chatID, text, keyboard)
	if err != nil {
		r.log.Error().Err(err).Int64("chat", chatID).Msg("router: не удалось отправить ответ")
		return
	}
	r.sessions.SetLastMessage(callerID, msgID)
}

func (r *Router) mainKeyboard() *domain.InlineKeyboard {
	encode := func(kind domain.ActionKind) string {
		return domain.CallbackAction{Kind: kind}.Encode()
	}
	return &domain.InlineKeyboard{Rows: [][]domain.InlineButton{
		{
			{Text: "📊 Отчёт", CallbackData: encode(domain.ActionReportNow)},
			{Text: "📈 Позиции", CallbackData: encode(domain.ActionPositions)},
		},
		{
			{Text: "🗓 Расписание", CallbackData: encode(domain.ActionScheduleMenu)},
			{Text: "ℹ️ Помощь", CallbackData: encode(domain.ActionHelp)},
		},
	}}
}

func schedulePresetKeyboard() *domain.InlineKeyboard {
	preset := func(value string) domain.InlineButton {
		action := domain.CallbackAction{Kind: domain.ActionSetTime, ID: value}
		return domain.InlineButton{Text: value, CallbackData: action.Encode()}
	}
	return &domain.InlineKeyboard{Rows: [][]domain.InlineButton{
		{preset("07:30"), preset("09:00"), preset("12:00")},
		{preset("18:00"), preset("21:00")},
	}}
}

func jobTypeLabel(t domain.JobType) string {
	switch t {
	case domain.JobDaily:
		return "ежедневный"
	case domain.JobWeekly:
		return "еженедельный"
	case domain.JobMonthly:
		return "ежемесячный"
	default:
		return string(t)
	}
}
