package normalize

import "strings"

// SportMeta is the canonical (category, league, display) triple for a
// vendor sport key.
type SportMeta struct {
	Category    string
	League      string
	DisplayName string
}

// sportTable maps vendor sport keys to canonical triples.
var sportTable = map[string]SportMeta{
	"soccer_epl":                {Category: "Soccer", League: "English Premier League", DisplayName: "Premier League"},
	"soccer_spain_la_liga":      {Category: "Soccer", League: "La Liga", DisplayName: "La Liga"},
	"soccer_germany_bundesliga": {Category: "Soccer", League: "Bundesliga", DisplayName: "Bundesliga"},
	"soccer_italy_serie_a":      {Category: "Soccer", League: "Serie A", DisplayName: "Serie A"},
	"soccer_france_ligue_one":   {Category: "Soccer", League: "Ligue 1", DisplayName: "Ligue 1"},
	"soccer_uefa_champs_league": {Category: "Soccer", League: "UEFA Champions League", DisplayName: "Champions League"},
	"soccer_uefa_europa_league": {Category: "Soccer", League: "UEFA Europa League", DisplayName: "Europa League"},
	"basketball_nba":            {Category: "Basketball", League: "NBA", DisplayName: "NBA"},
	"basketball_euroleague":     {Category: "Basketball", League: "EuroLeague", DisplayName: "EuroLeague"},
	"icehockey_nhl":             {Category: "Ice Hockey", League: "NHL", DisplayName: "NHL"},
	"tennis_atp_us_open":        {Category: "Tennis", League: "ATP US Open", DisplayName: "US Open"},
	"americanfootball_nfl":      {Category: "American Football", League: "NFL", DisplayName: "NFL"},
}

// SportMetaFor resolves a vendor sport key. Unknown keys pass through
// with a derived triple rather than failing the batch; found reports
// whether the key was in the static table.
func SportMetaFor(sportKey string) (meta SportMeta, found bool) {
	if meta, ok := sportTable[sportKey]; ok {
		return meta, true
	}

	if sportKey == "" {
		return SportMeta{
			Category:    "Unknown",
			League:      "unknown",
			DisplayName: "unknown",
		}, false
	}

	category := sportKey
	if i := strings.Index(sportKey, "_"); i > 0 {
		category = sportKey[:i]
	}
	category = strings.ToUpper(category[:1]) + category[1:]

	return SportMeta{
		Category:    category,
		League:      sportKey,
		DisplayName: sportKey,
	}, false
}

// teamTable maps vendor team-name variations to canonical names.
var teamTable = map[string]string{
	"Man United":        "Manchester United",
	"Man Utd":           "Manchester United",
	"Man City":          "Manchester City",
	"Spurs":             "Tottenham Hotspur",
	"Tottenham":         "Tottenham Hotspur",
	"Wolves":            "Wolverhampton Wanderers",
	"Brighton":          "Brighton and Hove Albion",
	"West Ham":          "West Ham United",
	"Newcastle":         "Newcastle United",
	"Nottm Forest":      "Nottingham Forest",
	"Inter":             "Inter Milan",
	"PSG":               "Paris Saint-Germain",
	"Atletico":          "Atletico Madrid",
	"Atlético Madrid":   "Atletico Madrid",
	"Bayern":            "Bayern Munich",
	"FC Bayern München": "Bayern Munich",
	"Dortmund":          "Borussia Dortmund",
	"Leverkusen":        "Bayer Leverkusen",
	"LA Lakers":         "Los Angeles Lakers",
	"LA Clippers":       "Los Angeles Clippers",
	"NY Knicks":         "New York Knicks",
	"GS Warriors":       "Golden State Warriors",
	"OKC Thunder":       "Oklahoma City Thunder",
}

// NormalizeTeamName standardizes team names from the vendor, handling
// variations like "Man United" vs "Manchester United".
func NormalizeTeamName(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := teamTable[name]; ok {
		return canonical
	}
	return name
}
