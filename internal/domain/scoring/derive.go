package scoring

// Clusters are presentation aggregates over the canonical axes.
type Clusters struct {
	InnerBalance int `json:"innerBalance"`
	Energy       int `json:"energy"`
	Resilience   int `json:"resilience"`
	Digestion    int `json:"digestion"`
	Rest         int `json:"rest"`
}

type Recommendation struct {
	Lifestyle string `json:"lifestyle"`
	Product   string `json:"product"`
	Message   string `json:"message"`
}

type Derivation struct {
	Clusters        Clusters       `json:"clusters"`
	Recommendations Recommendation `json:"recommendations"`
}

// Derive computes clusters from scores and looks up the recommendation for ht.
func Derive(scores Scores, ht HealthType) Derivation {
	return Derivation{
		Clusters:        BuildClusters(scores),
		Recommendations: RecommendationFor(ht),
	}
}

func BuildClusters(scores Scores) Clusters {
	total := 0
	for _, a := range CanonicalAxes {
		total += scores[a]
	}
	n := len(CanonicalAxes)
	resilience := scores[AxisImmunity]
	if scores[AxisStress] < resilience {
		resilience = scores[AxisStress]
	}
	return Clusters{
		// round half up on non-negative ints
		InnerBalance: (2*total + n) / (2 * n),
		Energy:       scores[AxisEnergy],
		Resilience:   resilience,
		Digestion:    scores[AxisDigestion],
		Rest:         scores[AxisSleep],
	}
}

var genericRecommendation = Recommendation{
	Lifestyle: "일상에서 작은 루틴부터 시작하세요.",
	Product:   "기초 영양제(멀티비타민/종합오메가) 추천",
	Message:   "전반적으로 균형을 잡으면 회복 속도가 빨라집니다.",
}

func RecommendationFor(ht HealthType) Recommendation {
	switch ht {
	case BurnoutFire:
		return Recommendation{
			Lifestyle: "짧은 휴식(5분) × 4회, 오전 산책으로 부신 리듬 활성화",
			Product:   "B-콤플렉스 + 비타민C 복합제",
			Message:   "지치고 무기력한 상태이니 작은 루틴을 쌓아 회복 속도를 높입니다.",
		}
	case RestlessOwl:
		return Recommendation{
			Lifestyle: "수면 위생(자기 전 화면 금지, 블루라이트 차단)",
			Product:   "마그네슘+GABA 복합제",
			Message:   "수면 패턴을 재정비하면 다음날 컨디션이 30% 이상 개선됩니다.",
		}
	case SensitiveStomach:
		return Recommendation{
			Lifestyle: "식사 20분 이상 천천히, 야채 중심 식단",
			Product:   "프리/프로바이오틱스 + 소화효소",
			Message:   "소화가 정상화되어야 전신 에너지 흐름도 회복됩니다.",
		}
	case TensionWire:
		return Recommendation{
			Lifestyle: "깊은 호흡 2회, 점심 직후 짧은 산책",
			Product:   "아답토젠 + L-테아닌",
			Message:   "스트레스를 문진하며 풀어내면 몸 전체 긴장이 완화됩니다.",
		}
	case DelicateShield:
		return Recommendation{
			Lifestyle: "철저한 수면/수분+손 위생, 휴식 중심 데일리 루틴",
			Product:   "비타민C/D + 아연 분말",
			Message:   "면역 보강이 최우선이며, 과로/과음은 잠시 멈춰야 합니다.",
		}
	default:
		return genericRecommendation
	}
}
