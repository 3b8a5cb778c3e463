package utils

import (
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone format")

// NormalizePhone приводит российский номер к виду +7XXXXXXXXXX.
// Принимает "8 (999) 123-45-67", "+79991234567", "79991234567", "9991234567".
// Мобильный код должен начинаться с 9.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch len(d) {
	case 11:
		if d[0] == '8' || d[0] == '7' {
			d = d[1:]
		} else {
			return "", ErrInvalidPhone
		}
	case 10:
		// уже без кода страны
	default:
		return "", ErrInvalidPhone
	}

	if d[0] != '9' {
		return "", ErrInvalidPhone
	}
	return "+7" + d, nil
}
