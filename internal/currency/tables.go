package currency

import "regexp"

// supported is the set of currency codes the pipeline will persist. Codes
// outside this set are replaced by the resolver's best guess.
var supported = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
	"CAD": true, "AUD": true, "NZD": true, "SEK": true, "NOK": true,
	"DKK": true, "PLN": true, "CZK": true, "HUF": true, "RON": true,
	"INR": true, "CNY": true, "KRW": true, "SGD": true, "HKD": true,
	"THB": true, "MYR": true, "IDR": true, "PHP": true, "VND": true,
	"MXN": true, "BRL": true, "ARS": true, "CLP": true, "COP": true,
	"ZAR": true, "AED": true, "SAR": true, "ILS": true, "TRY": true,
}

// Supported reports whether code is in the supported-currency set.
func Supported(code string) bool {
	return supported[code]
}

// SymbolTable maps currency symbols and common abbreviations to ISO 4217
// codes. It is embedded into the extraction prompt so the model can
// disambiguate symbols, and consulted by the resolver for free text.
var SymbolTable = map[string]string{
	"$":    "USD",
	"US$":  "USD",
	"USD":  "USD",
	"€":    "EUR",
	"EUR":  "EUR",
	"£":    "GBP",
	"GBP":  "GBP",
	"¥":    "JPY",
	"JPY":  "JPY",
	"元":    "CNY",
	"CN¥":  "CNY",
	"RMB":  "CNY",
	"CHF":  "CHF",
	"Fr.":  "CHF",
	"C$":   "CAD",
	"CA$":  "CAD",
	"CAD":  "CAD",
	"A$":   "AUD",
	"AU$":  "AUD",
	"AUD":  "AUD",
	"NZ$":  "NZD",
	"kr":   "SEK",
	"SEK":  "SEK",
	"NOK":  "NOK",
	"DKK":  "DKK",
	"zł":   "PLN",
	"PLN":  "PLN",
	"Kč":   "CZK",
	"CZK":  "CZK",
	"Ft":   "HUF",
	"HUF":  "HUF",
	"lei":  "RON",
	"₹":    "INR",
	"Rs.":  "INR",
	"INR":  "INR",
	"₩":    "KRW",
	"KRW":  "KRW",
	"S$":   "SGD",
	"SGD":  "SGD",
	"HK$":  "HKD",
	"฿":    "THB",
	"THB":  "THB",
	"RM":   "MYR",
	"Rp":   "IDR",
	"₱":    "PHP",
	"₫":    "VND",
	"MX$":  "MXN",
	"R$":   "BRL",
	"AR$":  "ARS",
	"CLP$": "CLP",
	"R":    "ZAR",
	"ZAR":  "ZAR",
	"د.إ":  "AED",
	"AED":  "AED",
	"SAR":  "SAR",
	"₪":    "ILS",
	"₺":    "TRY",
	"TL":   "TRY",
}

// merchantTable maps well-known national chains to their home currency.
// Matching is case-insensitive substring against the merchant name.
var merchantTable = map[string]string{
	"tesco":              "GBP",
	"sainsbury":          "GBP",
	"waitrose":           "GBP",
	"asda":               "GBP",
	"morrisons":          "GBP",
	"boots":              "GBP",
	"greggs":             "GBP",
	"marks & spencer":    "GBP",
	"walmart":            "USD",
	"target":             "USD",
	"cvs":                "USD",
	"walgreens":          "USD",
	"kroger":             "USD",
	"safeway":            "USD",
	"trader joe":         "USD",
	"whole foods":        "USD",
	"carrefour":          "EUR",
	"auchan":             "EUR",
	"mercadona":          "EUR",
	"rewe":               "EUR",
	"edeka":              "EUR",
	"intermarché":        "EUR",
	"albert heijn":       "EUR",
	"migros":             "CHF",
	"denner":             "CHF",
	"loblaws":            "CAD",
	"tim hortons":        "CAD",
	"shoppers drug mart": "CAD",
	"canadian tire":      "CAD",
	"woolworths":         "AUD",
	"coles":              "AUD",
	"bunnings":           "AUD",
	"familymart":         "JPY",
	"lawson":             "JPY",
	"seven eleven japan": "JPY",
	"don quijote":        "JPY",
	"reliance fresh":     "INR",
	"big bazaar":         "INR",
	"dmart":              "INR",
	"ica":                "SEK",
	"systembolaget":      "SEK",
	"rema 1000":          "NOK",
	"netto":              "DKK",
	"biedronka":          "PLN",
	"żabka":              "PLN",
	"zabka":              "PLN",
	"oxxo":               "MXN",
	"soriana":            "MXN",
	"pão de açúcar":      "BRL",
	"checkers":           "ZAR",
	"pick n pay":         "ZAR",
}

// locationMarker pairs a compiled location pattern (postal-code shapes,
// country and city names, country-code domain suffixes) with the currency
// it implies. Matching runs over merchant, description and any free text.
type locationMarker struct {
	pattern *regexp.Regexp
	code    string
}

var locationMarkers = []locationMarker{
	// Postal-code shapes.
	{regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d[A-Z\d]?\s?\d[A-Z]{2}\b`), "GBP"}, // UK postcode
	{regexp.MustCompile(`\b[A-Za-z]\d[A-Za-z]\s?\d[A-Za-z]\d\b`), "CAD"},     // Canadian postal code
	{regexp.MustCompile(`\b\d{5}\s+(?:Paris|Lyon|Marseille|Berlin|Hamburg|München|Madrid|Barcelona|Roma|Milano)\b`), "EUR"},

	// Country-code domain suffixes.
	{regexp.MustCompile(`(?i)\.co\.uk\b`), "GBP"},
	{regexp.MustCompile(`(?i)\.(?:de|fr|es|it|nl|ie|at|be|pt|fi)\b`), "EUR"},
	{regexp.MustCompile(`(?i)\.ca\b`), "CAD"},
	{regexp.MustCompile(`(?i)\.com\.au\b`), "AUD"},
	{regexp.MustCompile(`(?i)\.co\.nz\b`), "NZD"},
	{regexp.MustCompile(`(?i)\.co\.jp\b`), "JPY"},
	{regexp.MustCompile(`(?i)\.ch\b`), "CHF"},
	{regexp.MustCompile(`(?i)\.(?:in|co\.in)\b`), "INR"},
	{regexp.MustCompile(`(?i)\.com\.br\b`), "BRL"},
	{regexp.MustCompile(`(?i)\.co\.za\b`), "ZAR"},
	{regexp.MustCompile(`(?i)\.com\.mx\b`), "MXN"},
	{regexp.MustCompile(`(?i)\.sg\b`), "SGD"},

	// Country and major-city names.
	{regexp.MustCompile(`(?i)\b(?:united kingdom|england|scotland|wales|london|manchester|birmingham|edinburgh|glasgow)\b`), "GBP"},
	{regexp.MustCompile(`(?i)\b(?:deutschland|germany|berlin|hamburg|frankfurt|france|paris|españa|spain|madrid|barcelona|italia|italy|roma|milano|nederland|amsterdam|ireland|dublin|österreich|wien|vienna|lisboa|lisbon)\b`), "EUR"},
	{regexp.MustCompile(`(?i)\b(?:schweiz|suisse|switzerland|zürich|zurich|genève|geneva|basel|bern)\b`), "CHF"},
	{regexp.MustCompile(`(?i)\b(?:canada|toronto|vancouver|montréal|montreal|calgary|ottawa)\b`), "CAD"},
	{regexp.MustCompile(`(?i)\b(?:australia|sydney|melbourne|brisbane|perth|adelaide)\b`), "AUD"},
	{regexp.MustCompile(`(?i)\b(?:new zealand|auckland|wellington|christchurch)\b`), "NZD"},
	{regexp.MustCompile(`(?i)\b(?:japan|tokyo|osaka|kyoto|nagoya|sapporo)\b`), "JPY"},
	{regexp.MustCompile(`(?i)\b(?:india|mumbai|delhi|bangalore|bengaluru|chennai|hyderabad|kolkata)\b`), "INR"},
	{regexp.MustCompile(`(?i)\b(?:sverige|sweden|stockholm|göteborg|gothenburg|malmö)\b`), "SEK"},
	{regexp.MustCompile(`(?i)\b(?:norge|norway|oslo|bergen|trondheim)\b`), "NOK"},
	{regexp.MustCompile(`(?i)\b(?:danmark|denmark|københavn|copenhagen|aarhus)\b`), "DKK"},
	{regexp.MustCompile(`(?i)\b(?:polska|poland|warszawa|warsaw|kraków|krakow|wrocław|gdańsk)\b`), "PLN"},
	{regexp.MustCompile(`(?i)\b(?:singapore)\b`), "SGD"},
	{regexp.MustCompile(`(?i)\b(?:hong kong|kowloon)\b`), "HKD"},
	{regexp.MustCompile(`(?i)\b(?:méxico|mexico city|guadalajara|monterrey)\b`), "MXN"},
	{regexp.MustCompile(`(?i)\b(?:brasil|brazil|são paulo|sao paulo|rio de janeiro)\b`), "BRL"},
	{regexp.MustCompile(`(?i)\b(?:south africa|johannesburg|cape town|durban|pretoria)\b`), "ZAR"},
	{regexp.MustCompile(`(?i)\b(?:dubai|abu dhabi|sharjah)\b`), "AED"},
	{regexp.MustCompile(`(?i)\b(?:singapura|türkiye|turkey|istanbul|ankara)\b`), "TRY"},
	{regexp.MustCompile(`(?i)\b(?:israel|tel aviv|jerusalem|haifa)\b`), "ILS"},
	{regexp.MustCompile(`(?i)\b(?:thailand|bangkok|phuket|chiang mai)\b`), "THB"},
	{regexp.MustCompile(`(?i)\b(?:south korea|seoul|busan|incheon)\b`), "KRW"},
	{regexp.MustCompile(`(?i)\b(?:malaysia|kuala lumpur|penang)\b`), "MYR"},
	{regexp.MustCompile(`(?i)\b(?:indonesia|jakarta|bali|surabaya)\b`), "IDR"},
	{regexp.MustCompile(`(?i)\b(?:philippines|manila|cebu|quezon)\b`), "PHP"},
	{regexp.MustCompile(`(?i)\b(?:vietnam|hanoi|ho chi minh|saigon|da nang)\b`), "VND"},
	{regexp.MustCompile(`(?i)\b(?:usa|u\.s\.a\.|united states|new york|los angeles|chicago|houston|seattle|san francisco)\b`), "USD"},
}
