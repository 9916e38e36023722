// Package countries maps destination country names to the official visa
// information pages used as scraping sources. The table holds every known
// spelling (including non-English aliases) as its own key, all pointing at
// the same URL list, so lookup is a single map access.
package countries

import "strings"

var sources = map[string][]string{}

func register(urls []string, aliases ...string) {
	for _, a := range aliases {
		sources[strings.ToLower(a)] = urls
	}
}

func init() {
	register(
		[]string{
			"https://france-visas.gouv.fr/en/web/france-visas/tourism-private-stay",
			"https://www.diplomatie.gouv.fr/en/coming-to-france/getting-a-visa/",
		},
		"France", "Fransa", "Frankreich", "Francia", "Frankrijk",
	)
	register(
		[]string{
			"https://www.auswaertiges-amt.de/en/visa-service/visabestimmungen-node",
			"https://www.germany-visa.org/tourist-visa/",
		},
		"Germany", "Deutschland", "Almanya", "Alemania", "Allemagne",
	)
	register(
		[]string{
			"https://www.netherlandsworldwide.nl/visa-the-netherlands",
		},
		"Netherlands", "Nederland", "Hollanda", "Holland", "Pays-Bas",
	)
	register(
		[]string{
			"https://www.exteriores.gob.es/en/ServiciosAlCiudadano/Paginas/Visados.aspx",
		},
		"Spain", "España", "Espana", "Ispanya", "Espagne", "Spanien",
	)
	register(
		[]string{
			"https://vistoperitalia.esteri.it/home/en",
		},
		"Italy", "Italia", "İtalya", "Italya", "Italie", "Italien",
	)
	register(
		[]string{
			"https://www.gov.uk/browse/visas-immigration",
			"https://www.gov.uk/standard-visitor",
		},
		"United Kingdom", "UK", "Great Britain", "Birleşik Krallık", "Birlesik Krallik", "İngiltere", "Ingiltere",
	)
	register(
		[]string{
			"https://travel.state.gov/content/travel/en/us-visas.html",
		},
		"United States", "USA", "US", "United States of America", "Amerika", "ABD", "Estados Unidos",
	)
	register(
		[]string{
			"https://www.canada.ca/en/immigration-refugees-citizenship/services/visit-canada.html",
		},
		"Canada", "Kanada",
	)
	register(
		[]string{
			"https://immi.homeaffairs.gov.au/visas/getting-a-visa/visa-finder",
		},
		"Australia", "Avustralya", "Australien",
	)
	register(
		[]string{
			"https://www.mofa.go.jp/j_info/visit/visa/index.html",
		},
		"Japan", "Japonya", "Japon", "Nippon",
	)
	register(
		[]string{
			"https://www.migri.fi/en/visa",
		},
		"Finland", "Finlandiya", "Suomi",
	)
	register(
		[]string{
			"https://www.government.se/government-policy/migration-and-asylum/",
			"https://www.migrationsverket.se/English/Private-individuals/Visiting-Sweden.html",
		},
		"Sweden", "İsveç", "Isvec", "Sverige",
	)
}

// Resolve returns the authoritative source URLs for a destination country.
// Lookup is case-insensitive; unknown countries yield an empty slice, never
// an error — the caller decides whether that is fatal.
func Resolve(country string) []string {
	urls, ok := sources[strings.ToLower(strings.TrimSpace(country))]
	if !ok {
		return nil
	}
	out := make([]string, len(urls))
	copy(out, urls)
	return out
}
