// Package endpoints resolves the base URLs and credentials of the remote services.
package endpoints

import (
	"os"
	"strings"
)

const (
	EnvEndpointsFile = "COUNTRIES_ENDPOINTS_FILE"
	EnvRestCountries = "RESTCOUNTRIES_URL"
	EnvGeocode       = "GEOCODE_URL"
	EnvGeocodeAuth   = "GEOCODE_AUTH"
	EnvIPGeo         = "IPGEO_URL"
)

const (
	DefaultRestCountries = "https://restcountries.com/v2"
	DefaultGeocode       = "https://geocode.xyz"
	DefaultIPGeo         = "http://ip-api.com/json"
)

// Services holds one base URL per remote service.
type Services struct {
	RestCountries string
	Geocode       string
	IPGeo         string
}

// Env is the resolved remote configuration.
type Env struct {
	Services Services
	// GeocodeAuth is the optional geocode.xyz key. Never log it.
	GeocodeAuth string
}

// LoadEnv reads the endpoints file when COUNTRIES_ENDPOINTS_FILE is set, otherwise the
// single-URL env vars, and fills in public defaults for anything left unset.
func LoadEnv() (Env, error) {
	var s Services
	if p := strings.TrimSpace(os.Getenv(EnvEndpointsFile)); p != "" {
		loaded, err := loadServicesFromFile(p)
		if err != nil {
			return Env{}, err
		}
		s = loaded
	} else {
		s = Services{
			RestCountries: strings.TrimSpace(os.Getenv(EnvRestCountries)),
			Geocode:       strings.TrimSpace(os.Getenv(EnvGeocode)),
			IPGeo:         strings.TrimSpace(os.Getenv(EnvIPGeo)),
		}
	}

	return Env{
		Services:    s.withDefaults(),
		GeocodeAuth: strings.TrimSpace(os.Getenv(EnvGeocodeAuth)),
	}, nil
}

func (s Services) withDefaults() Services {
	if s.RestCountries == "" {
		s.RestCountries = DefaultRestCountries
	}
	if s.Geocode == "" {
		s.Geocode = DefaultGeocode
	}
	if s.IPGeo == "" {
		s.IPGeo = DefaultIPGeo
	}
	s.RestCountries = strings.TrimRight(s.RestCountries, "/")
	s.Geocode = strings.TrimRight(s.Geocode, "/")
	return s
}
