package normalize

import (
	"strings"
	"unicode"
)

// bookmakerIdentity is a canonical bookmaker id plus its display name.
type bookmakerIdentity struct {
	ID      string
	Display string
}

// bookmakerTable maps cleaned lookup keys to canonical identities.
// Keys are lowercase with all non-alphanumerics removed, matching the
// output of cleanBookmakerKey.
var bookmakerTable = map[string]bookmakerIdentity{
	"williamhill":   {ID: "williamhill", Display: "William Hill"},
	"bet365":        {ID: "bet365", Display: "bet365"},
	"unibet":        {ID: "unibet", Display: "Unibet"},
	"bwin":          {ID: "bwin", Display: "bwin"},
	"pinnacle":      {ID: "pinnacle", Display: "Pinnacle"},
	"betfair":       {ID: "betfair", Display: "Betfair"},
	"betfairexch":   {ID: "betfair", Display: "Betfair"},
	"888sport":      {ID: "888sport", Display: "888sport"},
	"betsson":       {ID: "betsson", Display: "Betsson"},
	"betclic":       {ID: "betclic", Display: "Betclic"},
	"marathonbet":   {ID: "marathonbet", Display: "Marathon Bet"},
	"1xbet":         {ID: "1xbet", Display: "1xBet"},
	"betway":        {ID: "betway", Display: "Betway"},
	"skybet":        {ID: "skybet", Display: "Sky Bet"},
	"paddypower":    {ID: "paddypower", Display: "Paddy Power"},
	"ladbrokes":     {ID: "ladbrokes", Display: "Ladbrokes"},
	"coral":         {ID: "coral", Display: "Coral"},
	"betvictor":     {ID: "betvictor", Display: "Bet Victor"},
	"matchbook":     {ID: "matchbook", Display: "Matchbook"},
	"livescorebet":  {ID: "livescorebet", Display: "LiveScore Bet"},
	"boylesports":   {ID: "boylesports", Display: "BoyleSports"},
	"grosvenor":     {ID: "grosvenor", Display: "Grosvenor"},
	"virginbet":     {ID: "virginbet", Display: "Virgin Bet"},
	"leovegas":      {ID: "leovegas", Display: "LeoVegas"},
	"casumo":        {ID: "casumo", Display: "Casumo"},
	"mybookieag":    {ID: "mybookieag", Display: "MyBookie"},
	"nordicbet":     {ID: "nordicbet", Display: "NordicBet"},
	"tipico":        {ID: "tipico", Display: "Tipico"},
	"everygame":     {ID: "everygame", Display: "Everygame"},
	"suprabets":     {ID: "suprabets", Display: "Suprabets"},
	"onexbet":       {ID: "1xbet", Display: "1xBet"},
	"gtbets":        {ID: "gtbets", Display: "GTbets"},
	"betonlineag":   {ID: "betonlineag", Display: "BetOnline"},
	"betanysports":  {ID: "betanysports", Display: "BetAnySports"},
	"lowvig":        {ID: "lowvig", Display: "LowVig"},
	"bovada":        {ID: "bovada", Display: "Bovada"},
	"betus":         {ID: "betus", Display: "BetUS"},
	"sport888":      {ID: "888sport", Display: "888sport"},
	"winamax":       {ID: "winamax", Display: "Winamax"},
	"betfred":       {ID: "betfred", Display: "Betfred"},
	"smarkets":      {ID: "smarkets", Display: "Smarkets"},
	"tipwin":        {ID: "tipwin", Display: "Tipwin"},
	"neds":          {ID: "neds", Display: "Neds"},
	"sportsbetting": {ID: "sportsbetting", Display: "SportsBetting"},
}

// droppedPrefixes are leading tokens that carry no identity.
var droppedPrefixes = map[string]bool{
	"bookmaker": true,
	"bookie":    true,
}

// regionSuffixes are trailing market-region tokens stripped before
// lookup, so "WilliamHill IT" and "williamhill" share an identity.
var regionSuffixes = map[string]bool{
	"it": true, "uk": true, "es": true, "de": true, "fr": true,
	"eu": true, "us": true, "au": true, "mx": true, "nl": true,
	"pt": true, "se": true, "gr": true,
}

// CanonicalBookmaker resolves a vendor bookmaker name to a stable
// identity. Lookup is case-insensitive with identity-free prefixes and
// region suffixes stripped. Unknown names fall back to a deterministic
// derived identity (non-alphanumerics removed, title-cased display) so
// bookmakers added upstream before the catalog is updated still get a
// consistent id.
func CanonicalBookmaker(name string) (id, display string) {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(name)))

	for len(tokens) > 0 && droppedPrefixes[tokens[0]] {
		tokens = tokens[1:]
	}
	for len(tokens) > 1 && regionSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	key := cleanBookmakerKey(strings.Join(tokens, ""))
	if key == "" {
		return "unknown", "Unknown"
	}

	if identity, ok := bookmakerTable[key]; ok {
		return identity.ID, identity.Display
	}

	return key, titleCase(tokens)
}

// cleanBookmakerKey lowercases and strips every non-alphanumeric rune.
func cleanBookmakerKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func titleCase(tokens []string) string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		runes := []rune(tok)
		if len(runes) == 0 {
			continue
		}
		runes[0] = unicode.ToUpper(runes[0])
		out = append(out, string(runes))
	}
	return strings.Join(out, " ")
}
