package msgfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMiles(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.000"},
		{15000, "15.000"},
		{1234567, "1.234.567"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatMiles(c.in))
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "26,00", FormatPrice(26))
	assert.Equal(t, "18,90", FormatPrice(18.9))
	assert.Equal(t, "0,10", FormatPrice(0.1))
}

func TestIndicationsRange(t *testing.T) {
	cases := []struct {
		count int64
		want  string
	}{
		{0, "<b>menos que 5 indicações</b>"},
		{5, "<b>entre 5 e 10 indicações</b>"},
		{17, "<b>entre 15 e 20 indicações</b>"},
		{100, "<b>mais de 50 indicações</b>"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IndicationsRange(c.count))
	}
}

func TestTrustMeter(t *testing.T) {
	out := TrustMeter(4.7, 12, "02/01/2025")
	assert.Contains(t, out, "Confiômetro")
	assert.Contains(t, out, "entre 15 e 20 indicações")
	assert.Contains(t, out, "4.7/5.0")
	assert.Contains(t, out, "Inscrito desde 02/01/2025")
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &amp;&lt;b&gt;", EscapeHTML("a &<b>"))
}
