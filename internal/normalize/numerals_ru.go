package normalize

import (
	"strconv"
	"strings"
)

var (
	ruUnitsMasc = []string{"ноль", "один", "два", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	ruUnitsFem  = []string{"ноль", "одна", "две", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	ruTeens     = []string{"десять", "одиннадцать", "двенадцать", "тринадцать", "четырнадцать",
		"пятнадцать", "шестнадцать", "семнадцать", "восемнадцать", "девятнадцать"}
	ruTens = []string{"", "", "двадцать", "тридцать", "сорок", "пятьдесят",
		"шестьдесят", "семьдесят", "восемьдесят", "девяносто"}
	ruHundreds = []string{"", "сто", "двести", "триста", "четыреста", "пятьсот",
		"шестьсот", "семьсот", "восемьсот", "девятьсот"}
)

// ruScale holds the one/few/many forms of a power of a thousand
type ruScale struct {
	forms    [3]string
	feminine bool
}

// index i is 1000^(i+1)
var ruScales = []ruScale{
	{forms: [3]string{"тысяча", "тысячи", "тысяч"}, feminine: true},
	{forms: [3]string{"миллион", "миллиона", "миллионов"}},
	{forms: [3]string{"миллиард", "миллиарда", "миллиардов"}},
	{forms: [3]string{"триллион", "триллиона", "триллионов"}},
	{forms: [3]string{"квадриллион", "квадриллиона", "квадриллионов"}},
	{forms: [3]string{"квинтиллион", "квинтиллиона", "квинтиллионов"}},
}

// SpellRussian spells a string of ASCII digits as Russian cardinal words.
// Values that overflow uint64 are spelled digit by digit.
func SpellRussian(digits string) string {
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		words := make([]string, 0, len(digits))
		for i := 0; i < len(digits); i++ {
			words = append(words, ruUnitsMasc[digits[i]-'0'])
		}
		return strings.Join(words, " ")
	}
	return spellUint(n)
}

func spellUint(n uint64) string {
	if n == 0 {
		return ruUnitsMasc[0]
	}

	var groups []uint64
	for n > 0 {
		groups = append(groups, n%1000)
		n /= 1000
	}

	var words []string
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			continue
		}
		if i == 0 {
			words = append(words, spellTriple(g, false)...)
			continue
		}
		scale := ruScales[i-1]
		words = append(words, spellTriple(g, scale.feminine)...)
		words = append(words, scale.forms[pluralForm(g)])
	}
	return strings.Join(words, " ")
}

// spellTriple spells 1..999
func spellTriple(n uint64, feminine bool) []string {
	var words []string
	if h := n / 100; h > 0 {
		words = append(words, ruHundreds[h])
	}
	rest := n % 100
	switch {
	case rest >= 10 && rest < 20:
		words = append(words, ruTeens[rest-10])
	default:
		if t := rest / 10; t > 0 {
			words = append(words, ruTens[t])
		}
		if u := rest % 10; u > 0 {
			if feminine {
				words = append(words, ruUnitsFem[u])
			} else {
				words = append(words, ruUnitsMasc[u])
			}
		}
	}
	return words
}

// pluralForm picks the one (0), few (1) or many (2) noun form for n
func pluralForm(n uint64) int {
	if r := n % 100; r >= 11 && r <= 19 {
		return 2
	}
	switch n % 10 {
	case 1:
		return 0
	case 2, 3, 4:
		return 1
	}
	return 2
}
