package endpoints

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// serviceMap maps each service id to a single-element list containing its base URL.
//
// Example (YAML):
//
//	restcountries:
//	  - https://restcountries.com/v2
//	geocode:
//	  - https://geocode.xyz
//	ipgeo:
//	  - http://ip-api.com/json
type serviceMap map[string][]string

func loadServicesFromFile(path string) (Services, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Services{}, fmt.Errorf("%s is required", EnvEndpointsFile)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Services{}, fmt.Errorf("read %s file: %w", EnvEndpointsFile, err)
	}

	var raw serviceMap
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return Services{}, fmt.Errorf("parse %s YAML: %w", EnvEndpointsFile, err)
	}

	getOne := func(key string) string {
		vals, ok := raw[key]
		if !ok || len(vals) == 0 {
			return ""
		}
		return strings.TrimSpace(vals[0])
	}

	s := Services{
		RestCountries: getOne("restcountries"),
		Geocode:       getOne("geocode"),
		IPGeo:         getOne("ipgeo"),
	}
	if s.RestCountries == "" {
		return Services{}, fmt.Errorf("%s missing restcountries", EnvEndpointsFile)
	}
	return s, nil
}
