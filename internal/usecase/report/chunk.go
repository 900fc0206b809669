package report

import "strings"

// MessageLimit — максимальная длина одного сообщения платформы.
const MessageLimit = 4096

// SplitText разбивает текст на части, не превышающие лимит платформы.
// Предпочитает границы строк, чтобы форматированные блоки оставались целыми;
// если отдельная строка длиннее лимита — откатывается на границы слов
// и только затем режет жёстко. Части образуют точное разбиение входа:
// граничный символ остаётся в конце предыдущей части, и конкатенация
// частей воспроизводит текст посимвольно, без потерь на стыках.
func SplitText(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if limit <= 0 {
		limit = MessageLimit
	}

	runes := []rune(trimmed)
	if len(runes) <= limit {
		return []string{trimmed}
	}

	var parts []string
	for start := 0; start < len(runes); {
		if len(runes)-start <= limit {
			parts = append(parts, string(runes[start:]))
			break
		}
		end := start + limit

		split := -1
		for i := end; i > start; i-- {
			if runes[i-1] == '\n' {
				split = i
				break
			}
		}
		if split == -1 {
			for i := end; i > start; i-- {
				if runes[i-1] == ' ' {
					split = i
					break
				}
			}
		}
		if split == -1 {
			split = end
		}

		parts = append(parts, string(runes[start:split]))
		start = split
	}
	return parts
}

// SplitMessage разбивает текст по лимиту платформы по умолчанию.
func SplitMessage(text string) []string {
	return SplitText(text, MessageLimit)
}
