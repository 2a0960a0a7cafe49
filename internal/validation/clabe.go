// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

const clabeLength = 18

var clabeWeights = [3]int{3, 7, 1}

// IsValidCLABE проверяет 18-значный номер CLABE по контрольной цифре: каждая из первых
// 17 цифр умножается на вес 3, 7, 1 по кругу, берётся последняя цифра произведения,
// контрольная цифра равна (10 - сумма mod 10) mod 10.
func IsValidCLABE(clabe string) bool {
	if len(clabe) != clabeLength {
		return false
	}

	sum := 0
	for i := 0; i < clabeLength; i++ {
		ch := rune(clabe[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		if i == clabeLength-1 {
			break
		}
		digit := int(ch - '0')
		sum += (digit * clabeWeights[i%3]) % 10
	}

	check := (10 - sum%10) % 10
	return check == int(clabe[clabeLength-1]-'0')
}
