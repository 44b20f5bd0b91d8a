// Package msgfmt renders the pt-BR chat fragments shared by the
// private dialogues and the group publisher.
package msgfmt

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatMiles renders a mile count with pt-BR thousand separators.
func FormatMiles(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ".")
}

// FormatPrice renders a price with a decimal comma: 18.9 -> "18,90".
func FormatPrice(v float64) string {
	return strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}

// IndicationsRange buckets a rating count into the coarse ranges shown
// on posts, the exact count is never exposed.
func IndicationsRange(count int64) string {
	switch {
	case count < 5:
		return "<b>menos que 5 indicações</b>"
	case count <= 10:
		return "<b>entre 5 e 10 indicações</b>"
	case count <= 20:
		return "<b>entre 15 e 20 indicações</b>"
	case count <= 30:
		return "<b>entre 25 e 30 indicações</b>"
	case count <= 40:
		return "<b>entre 35 e 40 indicações</b>"
	case count <= 50:
		return "<b>entre 45 e 50 indicações</b>"
	default:
		return "<b>mais de 50 indicações</b>"
	}
}

// TrustMeter renders the reputation block appended to group posts.
func TrustMeter(avgStars float64, ratingCount int64, memberSince string) string {
	var sb strings.Builder
	sb.WriteString("<b>Confiômetro:</b>\n")
	sb.WriteString("✅ Este usuário é verificado\n")
	sb.WriteString(fmt.Sprintf("🤝 Tem %s\n", IndicationsRange(ratingCount)))
	sb.WriteString(fmt.Sprintf("⭐ %.1f/5.0 é a nota desta pessoa\n", avgStars))
	sb.WriteString(fmt.Sprintf("📅 Inscrito desde %s\n", memberSince))
	return sb.String()
}

// EscapeHTML neutralizes user text interpolated into HTML messages.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
