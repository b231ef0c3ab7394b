package recipe

import (
	"fmt"
	"math"
	"strconv"
)

// KcalType says whether the kcal value is per serving or for the whole dish.
type KcalType int

const (
	KcalTypePerPerson KcalType = 1
	KcalTypeTotal     KcalType = 2
)

func (k KcalType) IsValid() bool {
	return k == KcalTypePerPerson || k == KcalTypeTotal
}

func (k KcalType) String() string {
	switch k {
	case KcalTypePerPerson:
		return "Per Person"
	case KcalTypeTotal:
		return "Total"
	default:
		return fmt.Sprintf("KcalType(%d)", int(k))
	}
}

// ParseKcalType converts a form value into a KcalType.
func ParseKcalType(s string) (KcalType, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !KcalType(n).IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKcalType, s)
	}
	return KcalType(n), nil
}

// Energy density of the macronutrients in kcal per gram.
const (
	FatKcalPerGram     = 8.80
	ProteinKcalPerGram = 4.06
	CarbKcalPerGram    = 4.06
)

// ImageURLs are the links returned by the image host for an upload.
type ImageURLs struct {
	Display   string `json:"display_url"`
	Delete    string `json:"delete_url"`
	Thumbnail string `json:"thumbnail_url"`
	Viewer    string `json:"viewer_url"`
}

func (i ImageURLs) IsZero() bool {
	return i == ImageURLs{}
}

// energyString renders "<label>: <grams> g (<kcal> kcal)". Grams are
// rounded to one decimal, halves to even, and shown without decimals when
// integral.
func energyString(grams *float64, kcalPerGram float64, label string) string {
	if grams == nil {
		return ""
	}
	kcal := kcalPerGram * *grams
	g := math.RoundToEven(*grams*10) / 10
	r := math.Round(g)
	var gs string
	if math.Abs(g-r) < 0.01 {
		gs = strconv.FormatFloat(r, 'f', 0, 64)
	} else {
		gs = strconv.FormatFloat(g, 'f', 1, 64)
	}
	return fmt.Sprintf("%s: %s g (%.2f kcal)", label, gs, kcal)
}

// formatCookingTime renders minutes as "H hours, M minutes". Only the time
// within one day is shown.
func formatCookingTime(minutes float64) string {
	sec := int64(minutes*60) % 86400
	if sec < 0 {
		sec += 86400
	}
	hours := sec / 3600
	mins := sec/60 - hours*60

	ms := fmt.Sprintf("%d minute", mins)
	if mins != 1 {
		ms += "s"
	}
	switch hours {
	case 0:
		return ms
	case 1:
		return "1 hour, " + ms
	default:
		return fmt.Sprintf("%d hours, %s", hours, ms)
	}
}
