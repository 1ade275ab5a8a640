package weather

// Icon is the display category of a WMO weather code.
type Icon string

const (
	IconClear     Icon = "clear"
	IconCloudy    Icon = "cloudy"
	IconFog       Icon = "fog"
	IconRain      Icon = "rain"
	IconHeavyRain Icon = "heavy-rain"
	IconSnow      Icon = "snow"
	IconStorm     Icon = "storm"
	IconUnknown   Icon = "unknown"
)

var weatherIcons = map[int]Icon{
	0:  IconClear,
	1:  IconCloudy,
	2:  IconCloudy,
	3:  IconCloudy,
	45: IconFog,
	48: IconFog,
	51: IconRain,
	53: IconRain,
	55: IconRain,
	56: IconRain,
	57: IconRain,
	61: IconHeavyRain,
	63: IconHeavyRain,
	65: IconHeavyRain,
	66: IconHeavyRain,
	67: IconHeavyRain,
	71: IconSnow,
	73: IconSnow,
	75: IconSnow,
	77: IconSnow,
	80: IconHeavyRain,
	81: IconHeavyRain,
	82: IconHeavyRain,
	85: IconSnow,
	86: IconSnow,
	95: IconStorm,
	96: IconStorm,
	99: IconStorm,
}

// IconFor never fails: codes outside the table map to IconUnknown.
func IconFor(code int) Icon {
	if icon, ok := weatherIcons[code]; ok {
		return icon
	}
	return IconUnknown
}

// Glyph is a one-rune stand-in for the icon in text output.
func (i Icon) Glyph() string {
	switch i {
	case IconClear:
		return "☀"
	case IconCloudy:
		return "☁"
	case IconFog:
		return "≡"
	case IconRain:
		return "☂"
	case IconHeavyRain:
		return "⛆"
	case IconSnow:
		return "❄"
	case IconStorm:
		return "⚡"
	default:
		return "?"
	}
}
