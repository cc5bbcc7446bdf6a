package domain

import (
	"fmt"
	"strings"
)

// VestmentColor — литургический цвет облачения.
type VestmentColor string

const (
	ColorWhite  VestmentColor = "WHITE"
	ColorRed    VestmentColor = "RED"
	ColorViolet VestmentColor = "VIOLET"
	ColorGreen  VestmentColor = "GREEN"
	ColorBlack  VestmentColor = "BLACK"
)

var providerColors = map[string]VestmentColor{
	"w": ColorWhite,
	"r": ColorRed,
	"v": ColorViolet,
	"g": ColorGreen,
	"b": ColorBlack,
}

// ParseVestmentColor переводит однобуквенный код поставщика в цвет.
func ParseVestmentColor(code string) (VestmentColor, error) {
	color, ok := providerColors[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownColor, code)
	}
	return color, nil
}

// ServiceCategory — вид богослужения.
type ServiceCategory string

const (
	CategoryMass         ServiceCategory = "mass"
	CategoryLamentations ServiceCategory = "lamentations"
	CategoryRosary       ServiceCategory = "rosary"
	CategoryAdoration    ServiceCategory = "adoration"
	CategoryVespers      ServiceCategory = "vespers"
	CategoryConfession   ServiceCategory = "confession"
	CategoryStations     ServiceCategory = "stations-of-the-cross"
	CategoryOther        ServiceCategory = "other"
)

var categoryTitles = map[ServiceCategory]string{
	CategoryMass:         "Msza św.",
	CategoryLamentations: "Gorzkie Żale",
	CategoryRosary:       "Różaniec",
	CategoryAdoration:    "Adoracja Najświętszego Sakramentu",
	CategoryVespers:      "Nieszpory",
	CategoryConfession:   "Spowiedź",
	CategoryStations:     "Droga Krzyżowa",
	CategoryOther:        "Nabożeństwo",
}

// Valid сообщает, что категория входит в перечисление.
func (c ServiceCategory) Valid() bool {
	_, ok := categoryTitles[c]
	return ok
}

// MassType — форма Мессы, имеет смысл только для категории mass.
type MassType string

const (
	MassSung   MassType = "sung"
	MassRead   MassType = "read"
	MassSilent MassType = "silent"
	MassSolemn MassType = "solemn"
)

var massTitles = map[MassType]string{
	MassSung:   "Msza św. śpiewana",
	MassRead:   "Msza św. czytana",
	MassSilent: "Msza św. cicha",
	MassSolemn: "Msza św. uroczysta",
}

// Valid сообщает, что тип Мессы входит в перечисление.
func (m MassType) Valid() bool {
	_, ok := massTitles[m]
	return ok
}
