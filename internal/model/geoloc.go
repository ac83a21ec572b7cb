package model

// Geolocation is the result of resolving a client IP address.
type Geolocation struct {
	Latitude    float32
	Longitude   float32
	CountryCode string
}

// CountryNumeric maps ISO alpha-2 country codes to the numeric codes the
// client expects in presence packets. Unknown codes map to 0 ("XX").
func CountryNumeric(code string) uint8 {
	if n, ok := countryNumerics[code]; ok {
		return n
	}
	return 0
}

var countryNumerics = map[string]uint8{
	"AR": 11, "AT": 15, "AU": 16, "BE": 22, "BG": 24, "BR": 31,
	"BY": 36, "CA": 38, "CH": 43, "CL": 45, "CN": 48, "CO": 49,
	"CZ": 56, "DE": 58, "DK": 60, "EE": 67, "ES": 70, "FI": 73,
	"FR": 77, "GB": 79, "GR": 85, "HK": 91, "HR": 93, "HU": 95,
	"ID": 96, "IE": 97, "IL": 98, "IN": 100, "IT": 105, "JP": 111,
	"KR": 113, "KZ": 122, "LT": 130, "LV": 132, "MX": 152, "MY": 153,
	"NL": 161, "NO": 162, "NZ": 166, "PE": 169, "PH": 171, "PL": 173,
	"PT": 176, "RO": 182, "RU": 185, "SE": 191, "SG": 192, "SK": 196,
	"TH": 210, "TR": 217, "TW": 220, "UA": 222, "US": 225, "VN": 233,
	"ZA": 240,
}
