// Package spoken turns transcribed Portuguese number words into integers.
package spoken

import (
	"math"
	"strconv"
	"strings"
)

// units[n] lists the cardinal and ordinal spellings of n.
var units = [][]string{
	{"zero"},
	{"um", "uma", "primeiro", "primeira"},
	{"dois", "duas", "segundo", "segunda"},
	{"três", "tres", "terceiro", "terceira"},
	{"quatro", "quarto", "quarta"},
	{"cinco", "quinto", "quinta"},
	{"seis", "sexto", "sexta"},
	{"sete", "sétimo", "sétima", "setimo", "setima"},
	{"oito", "oitavo", "oitava"},
	{"nove", "nono", "nona"},
	{"dez", "décimo", "décima", "decimo", "decima"},
	{"onze"},
	{"doze"},
	{"treze"},
	{"quatorze", "catorze"},
	{"quinze"},
	{"dezesseis"},
	{"dezessete"},
	{"dezoito"},
	{"dezenove"},
	{"vinte", "vigésimo", "vigésima"},
}

var tens = []string{"", "", "", "trinta", "quarenta", "cinquenta", "sessenta"}

var words = func() map[string]int {
	m := make(map[string]int)
	for n, spellings := range units {
		for _, w := range spellings {
			m[w] = n
		}
	}
	for i, w := range tens {
		if w != "" {
			m[w] = i * 10
		}
	}
	return m
}()

// Number parses digits ("3", "3º") or a single number word ("terceira").
func Number(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, "ºª.")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	n, ok := words[s]
	return n, ok
}

// Float parses a finite decimal with either separator, or falls back to Number.
func Float(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	n, ok := Number(s)
	return float64(n), ok
}
