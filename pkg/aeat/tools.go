package aeat

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Caracteres que la AEAT no admite en nombres y descripciones.
const strippedChars = "/*+?¿!$[]{}@#`^:;<>=~%\\"

// unaccentTransformer descompone (NFKD) y elimina las marcas diacríticas,
// dejando texto ASCII apto para NombreRazon y DescripcionOperacion.
var unaccentTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Unaccent normaliza un texto para el envío: quita acentos y elimina los
// caracteres reservados.
func Unaccent(text string) string {
	out, _, err := transform.String(unaccentTransformer, text)
	if err != nil {
		out = text
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedChars, r) {
			return -1
		}
		return r
	}, out)
}

// FormatPeriod formatea un mes como Periodo de dos dígitos ("01".."12").
func FormatPeriod(month int) string {
	return fmt.Sprintf("%02d", month)
}

// RateToPercent convierte un tipo en fracción (0.21) al porcentaje que viaja
// en el registro (21.00), siempre en valor absoluto.
func RateToPercent(rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(100)).Abs().Round(2)
}

// StripESPrefix quita el prefijo "ES" de un NIF-IVA intracomunitario español.
func StripESPrefix(code string) string {
	if strings.HasPrefix(code, "ES") {
		return code[2:]
	}
	return code
}
