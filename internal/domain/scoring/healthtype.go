package scoring

import "strings"

// HealthType is the label assigned from a respondent's weakest axis.
type HealthType string

const (
	BurnoutFire      HealthType = "에너지 고갈형 (Burnout Fire)"
	RestlessOwl      HealthType = "수면 부족형 (Restless Owl)"
	SensitiveStomach HealthType = "소화 민감형 (Sensitive Stomach)"
	TensionWire      HealthType = "스트레스 과다형 (Tension Wire)"
	DelicateShield   HealthType = "면역 저하형 (Delicate Shield)"
	BalancedHarmony  HealthType = "Balanced Harmony"
)

var AllHealthTypes = []HealthType{BurnoutFire, RestlessOwl, SensitiveStomach, TensionWire, DelicateShield, BalancedHarmony}

// ShortName returns the English part of the label, e.g. "Burnout Fire".
func (h HealthType) ShortName() string {
	s := string(h)
	open := strings.LastIndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return s
	}
	return s[open+1 : len(s)-1]
}

// ParseHealthType accepts either the full label or its short English name.
func ParseHealthType(s string) (HealthType, bool) {
	for _, h := range AllHealthTypes {
		if string(h) == s || h.ShortName() == s {
			return h, true
		}
	}
	return "", false
}

// HealthTypeFor maps an axis to its label; non-canonical axes fall back to
// BalancedHarmony.
func HealthTypeFor(a Axis) HealthType {
	switch a {
	case AxisEnergy:
		return BurnoutFire
	case AxisSleep:
		return RestlessOwl
	case AxisDigestion:
		return SensitiveStomach
	case AxisStress:
		return TensionWire
	case AxisImmunity:
		return DelicateShield
	default:
		return BalancedHarmony
	}
}

// Classify labels scores by their lowest canonical axis. Total and pure.
func Classify(scores Scores) HealthType {
	return HealthTypeFor(lowest(scores))
}
