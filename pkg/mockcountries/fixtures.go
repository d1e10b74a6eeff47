package mockcountries

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Country is one fixture entry, served in the restcountries v2 shape.
type Country struct {
	Name       string   `yaml:"name"`
	Code       string   `yaml:"code"`
	Region     string   `yaml:"region"`
	Population int64    `yaml:"population"`
	Flag       string   `yaml:"flag"`
	Language   string   `yaml:"language"`
	Currency   string   `yaml:"currency"`
	Borders    []string `yaml:"borders"`
}

// Place maps a coordinate to a country name for reverse geocoding.
type Place struct {
	Latitude  float64 `yaml:"lat"`
	Longitude float64 `yaml:"lng"`
	Country   string  `yaml:"country"`
}

// Fixtures is the dataset the mock serves.
//
// Example (YAML):
//
//	countries:
//	  - name: France
//	    code: FRA
//	    borders: [ESP, DEU]
//	places:
//	  - {lat: 48.8566, lng: 2.3522, country: France}
//	ip: {lat: 48.8566, lng: 2.3522}
type Fixtures struct {
	Countries []Country `yaml:"countries"`
	Places    []Place   `yaml:"places"`
	IP        *Coordinates `yaml:"ip"`
}

// Coordinates is the position the IP locator reports for every caller.
type Coordinates struct {
	Latitude  float64 `yaml:"lat"`
	Longitude float64 `yaml:"lng"`
}

// LoadFixtures reads a YAML fixture file.
func LoadFixtures(path string) (Fixtures, error) {
	b, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures YAML: %w", err)
	}
	for i, c := range f.Countries {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Code) == "" {
			return Fixtures{}, fmt.Errorf("country #%d: name and code are required", i+1)
		}
	}
	return f, nil
}

// DefaultFixtures is a small western-European dataset, including the France -> Spain chain.
func DefaultFixtures() Fixtures {
	return Fixtures{
		Countries: []Country{
			{Name: "France", Code: "FRA", Region: "Europe", Population: 67391582, Flag: "https://flagcdn.com/fr.svg", Language: "French", Currency: "Euro",
				Borders: []string{"ESP", "DEU", "ITA", "BEL", "LUX", "MCO", "AND", "CHE"}},
			{Name: "Spain", Code: "ESP", Region: "Europe", Population: 47351567, Flag: "https://flagcdn.com/es.svg", Language: "Spanish", Currency: "Euro",
				Borders: []string{"AND", "FRA", "GIB", "PRT", "MAR"}},
			{Name: "Germany", Code: "DEU", Region: "Europe", Population: 83240525, Flag: "https://flagcdn.com/de.svg", Language: "German", Currency: "Euro",
				Borders: []string{"AUT", "BEL", "CZE", "DNK", "FRA", "LUX", "NLD", "POL", "CHE"}},
			{Name: "Italy", Code: "ITA", Region: "Europe", Population: 59554023, Flag: "https://flagcdn.com/it.svg", Language: "Italian", Currency: "Euro",
				Borders: []string{"AUT", "FRA", "SMR", "SVN", "CHE", "VAT"}},
			{Name: "Austria", Code: "AUT", Region: "Europe", Population: 8917205, Flag: "https://flagcdn.com/at.svg", Language: "German", Currency: "Euro",
				Borders: []string{"CZE", "DEU", "HUN", "ITA", "LIE", "SVK", "SVN", "CHE"}},
			{Name: "Portugal", Code: "PRT", Region: "Europe", Population: 10305564, Flag: "https://flagcdn.com/pt.svg", Language: "Portuguese", Currency: "Euro",
				Borders: []string{"ESP"}},
			{Name: "Iceland", Code: "ISL", Region: "Europe", Population: 366425, Flag: "https://flagcdn.com/is.svg", Language: "Icelandic", Currency: "Icelandic króna"},
		},
		Places: []Place{
			{Latitude: 48.8566, Longitude: 2.3522, Country: "France"},
			{Latitude: 52.52, Longitude: 13.405, Country: "Germany"},
			{Latitude: 64.1466, Longitude: -21.9426, Country: "Iceland"},
		},
	}
}
