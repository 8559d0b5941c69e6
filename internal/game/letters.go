package game

// слово-лестница штрафных букв
const FullWord = "SKATE"

var ladder = [...]string{"", "S", "SK", "SKA", "SKAT", "SKATE"}

// NextLetter возвращает следующую ступень лестницы.
// На "SKATE" значение не меняется. Строки не из лестницы приводятся по длине.
func NextLetter(current string) string {
	n := len(current)
	if n >= len(FullWord) {
		return FullWord
	}
	return ladder[n+1]
}

// IsComplete - игрок собрал все буквы и выбыл
func IsComplete(s string) bool {
	return s == FullWord
}

// IsLadderPrefix - строка является ступенью лестницы
func IsLadderPrefix(s string) bool {
	if len(s) > len(FullWord) {
		return false
	}
	return ladder[len(s)] == s
}
