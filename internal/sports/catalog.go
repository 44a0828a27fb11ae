package sports

// DefaultCatalog returns the built-in sport catalog, ordered by how
// much the product cares about each competition. With a 16-request
// daily budget the tail of this list only gets refreshed on days when
// the head leaves budget over.
func DefaultCatalog() []Descriptor {
	return []Descriptor{
		{Key: "soccer_epl", DisplayName: "English Premier League", Priority: 1, Enabled: true},
		{Key: "soccer_spain_la_liga", DisplayName: "La Liga", Priority: 2, Enabled: true},
		{Key: "soccer_germany_bundesliga", DisplayName: "Bundesliga", Priority: 3, Enabled: true},
		{Key: "soccer_italy_serie_a", DisplayName: "Serie A", Priority: 4, Enabled: true},
		{Key: "soccer_france_ligue_one", DisplayName: "Ligue 1", Priority: 5, Enabled: true},
		{Key: "soccer_uefa_champs_league", DisplayName: "UEFA Champions League", Priority: 6, Enabled: true},
		{Key: "soccer_uefa_europa_league", DisplayName: "UEFA Europa League", Priority: 7, Enabled: true},
		{Key: "basketball_nba", DisplayName: "NBA", Priority: 8, Enabled: true},
		{Key: "basketball_euroleague", DisplayName: "EuroLeague", Priority: 9, Enabled: true},
		{Key: "icehockey_nhl", DisplayName: "NHL", Priority: 10, Enabled: true},
		{Key: "tennis_atp_us_open", DisplayName: "ATP US Open", Priority: 11, Enabled: false},
		{Key: "americanfootball_nfl", DisplayName: "NFL", Priority: 12, Enabled: false},
	}
}
