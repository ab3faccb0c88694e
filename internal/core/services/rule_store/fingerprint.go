package rule_store

import (
	"strconv"
	"unicode/utf16"

	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
)

// Fingerprint это сумма UTF-16 кодов канонической сериализации в hex.
// Не криптографическая, нужна только чтобы заметить несохраненные изменения.
func Fingerprint(ruleConfig domain.RuleConfig) string {
	serialized, err := ruleConfig.Serialize()
	if err != nil {
		return ""
	}
	return FingerprintString(serialized)
}

func FingerprintString(value string) string {
	var sum int64
	for _, unit := range utf16.Encode([]rune(value)) {
		sum += int64(unit)
	}
	return strconv.FormatInt(sum, 16)
}

// Dirty сравнивает отпечатки рабочей копии и последнего загруженного снимка
func Dirty(baseline, current domain.RuleConfig) bool {
	return Fingerprint(baseline) != Fingerprint(current)
}
