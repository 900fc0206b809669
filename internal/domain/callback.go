package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxCallbackBytes — лимит платформы на callback data одной кнопки.
const MaxCallbackBytes = 64

// ErrUnknownAction возвращается при декодировании неизвестного действия.
var ErrUnknownAction = errors.New("неизвестное действие callback")

// ActionKind — тип действия inline-кнопки. Закрытый набор, декодирование
// через явную таблицу: опечатка в данных кнопки не превращается в новый вид действия.
type ActionKind string

const (
	ActionMainMenu      ActionKind = "menu"
	ActionHelp          ActionKind = "help"
	ActionReportNow     ActionKind = "report_now"
	ActionPositions     ActionKind = "positions"
	ActionScheduleMenu  ActionKind = "schedule"
	ActionSetTime       ActionKind = "set_time"
	ActionJobToggle     ActionKind = "job_toggle"
	ActionClosePosition ActionKind = "close_position"
	ActionAckAlert      ActionKind = "ack_alert"
)

var knownActions = map[ActionKind]struct{}{
	ActionMainMenu:      {},
	ActionHelp:          {},
	ActionReportNow:     {},
	ActionPositions:     {},
	ActionScheduleMenu:  {},
	ActionSetTime:       {},
	ActionJobToggle:     {},
	ActionClosePosition: {},
	ActionAckAlert:      {},
}

// CallbackAction — разобранное действие кнопки: вид + полезная нагрузка.
type CallbackAction struct {
	Kind  ActionKind
	ID    string
	Value string
}

// Encode сериализует действие в форму "kind:id:value" не длиннее MaxCallbackBytes.
// Если естественная кодировка не влезает, данные детерминированно усекаются
// до существенного подмножества: сначала отбрасывается Value, затем ID
// обрезается по оставшемуся месту с откатом до границы руны,
// чтобы не получить битый UTF-8. Действие не теряется никогда.
func (a CallbackAction) Encode() string {
	encoded := string(a.Kind)
	if a.ID != "" {
		encoded += ":" + a.ID
	}
	if a.Value != "" {
		encoded += ":" + a.Value
	}
	if len(encoded) <= MaxCallbackBytes {
		return encoded
	}

	encoded = string(a.Kind)
	if a.ID != "" {
		encoded += ":" + a.ID
	}
	if len(encoded) > MaxCallbackBytes {
		cut := MaxCallbackBytes
		for cut > 0 && !utf8.RuneStart(encoded[cut]) {
			cut--
		}
		encoded = encoded[:cut]
	}
	return encoded
}

// DecodeCallback разбирает данные кнопки. Для неизвестного вида действия
// возвращается ErrUnknownAction — роутер показывает меню восстановления.
func DecodeCallback(data string) (CallbackAction, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return CallbackAction{}, ErrUnknownAction
	}
	parts := strings.SplitN(trimmed, ":", 3)
	kind := ActionKind(parts[0])
	if _, ok := knownActions[kind]; !ok {
		return CallbackAction{}, ErrUnknownAction
	}
	action := CallbackAction{Kind: kind}
	if len(parts) > 1 {
		action.ID = parts[1]
	}
	if len(parts) > 2 {
		action.Value = parts[2]
	}
	return action, nil
}
