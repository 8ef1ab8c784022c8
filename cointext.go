package pollmint

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/everFinance/pollmint/schema"
)

const (
	maxCoinNameLen   = 32
	maxCoinSymbolLen = 8
	fallbackCoinName = "Poll Coin"
)

// coinNameFor derives a display name from the option text: letters, digits and
// single spaces, title cased.
func coinNameFor(optionText string) string {
	words := strings.FieldsFunc(optionText, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		rs := []rune(strings.ToLower(w))
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	name := strings.Join(words, " ")
	if name == "" {
		return fallbackCoinName
	}
	if rs := []rune(name); len(rs) > maxCoinNameLen {
		name = strings.TrimSpace(string(rs[:maxCoinNameLen]))
	}
	return name
}

// coinSymbolFor keeps the ascii letters and digits of name, upper cased.
func coinSymbolFor(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
		if sb.Len() == maxCoinSymbolLen {
			break
		}
	}
	if sb.Len() == 0 {
		return "POLL"
	}
	return sb.String()
}

// withSuffix disambiguates a name or symbol, e.g. "Pizza" -> "Pizza-2" and "PIZZA" -> "PIZZA2".
func withSuffix(name, symbol string, n int) (string, string) {
	if n <= 1 {
		return name, symbol
	}
	suffix := fmt.Sprintf("%d", n)
	if len(symbol)+len(suffix) > maxCoinSymbolLen {
		symbol = symbol[:maxCoinSymbolLen-len(suffix)]
	}
	return fmt.Sprintf("%s-%s", name, suffix), symbol + suffix
}

func coinPreview(poll *schema.Poll, option string) schema.CoinPreview {
	text := poll.OptionText(option)
	name := coinNameFor(text)
	return schema.CoinPreview{
		Option:     option,
		PollID:     poll.ID,
		OptionText: text,
		CoinName:   name,
		CoinSymbol: coinSymbolFor(name),
	}
}
