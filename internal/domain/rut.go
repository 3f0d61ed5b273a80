package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeRUT validates a national-ID identifier of the form "12345678-5"
// (digits, dash, check digit 0-9 or K) and returns it in canonical form:
// no dots, upper-case check digit. The check digit uses the modulo-11
// weighting scheme over the reversed digit sequence.
func NormalizeRUT(raw string) (string, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), ".", ""))
	if cleaned == "" {
		return "", fmt.Errorf("%w: rut is required", ErrInvalidInput)
	}

	parts := strings.Split(cleaned, "-")
	if len(parts) != 2 || parts[0] == "" || len(parts[1]) != 1 {
		return "", fmt.Errorf("%w: rut must be of the form 12345678-5", ErrInvalidInput)
	}

	body, check := parts[0], parts[1]
	number, err := strconv.ParseUint(body, 10, 64)
	if err != nil || number == 0 {
		return "", fmt.Errorf("%w: rut body must be numeric", ErrInvalidInput)
	}
	if len(body) < 7 || len(body) > 9 {
		return "", fmt.Errorf("%w: rut body out of range", ErrInvalidInput)
	}

	if computeRUTCheckDigit(number) != check {
		return "", fmt.Errorf("%w: rut check digit does not match", ErrInvalidInput)
	}
	return body + "-" + check, nil
}

func computeRUTCheckDigit(number uint64) string {
	sum := 0
	factor := 2
	for number > 0 {
		sum += int(number%10) * factor
		number /= 10
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch rest := 11 - (sum % 11); rest {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(rest)
	}
}
