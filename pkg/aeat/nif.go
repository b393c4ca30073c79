package aeat

import (
	"fmt"
	"strings"
)

// Letras de control del NIF (algoritmo módulo 23 del Ministerio del Interior).
const nifControlLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// ValidateNIF valida el formato y la letra de control de un NIF español de
// persona física (8 dígitos + letra) o NIE (X/Y/Z + 7 dígitos + letra).
// Los NIF de persona jurídica (CIF) se aceptan solo por formato.
func ValidateNIF(nif string) error {
	nif = strings.ToUpper(strings.TrimSpace(nif))
	if len(nif) != 9 {
		return fmt.Errorf("aeat: NIF debe tener 9 caracteres, se recibieron %d", len(nif))
	}

	first := nif[0]
	switch {
	case first >= '0' && first <= '9':
		// Persona física: 8 dígitos + letra.
		return checkControlLetter(nif[:8], nif[8])
	case first == 'X' || first == 'Y' || first == 'Z':
		// NIE: la letra inicial se sustituye por 0/1/2.
		digits := string('0'+first-'X') + nif[1:8]
		return checkControlLetter(digits, nif[8])
	case first >= 'A' && first <= 'W':
		// Persona jurídica: letra + 7 dígitos + control (dígito o letra).
		for _, r := range nif[1:8] {
			if r < '0' || r > '9' {
				return fmt.Errorf("aeat: NIF %q con formato de persona jurídica inválido", nif)
			}
		}
		return nil
	}
	return fmt.Errorf("aeat: NIF %q no reconocido", nif)
}

func checkControlLetter(digits string, letter byte) error {
	var n int
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("aeat: NIF con dígitos inválidos")
		}
		n = n*10 + int(r-'0')
	}
	expected := nifControlLetters[n%23]
	if letter != expected {
		return fmt.Errorf("aeat: letra de control del NIF inválida: esperada %c, recibida %c",
			expected, letter)
	}
	return nil
}
