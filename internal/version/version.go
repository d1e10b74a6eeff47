package version

// Current is the release version, without a "v" prefix.
const Current = "0.3.0"

// UserAgent identifies this module to the remote services.
func UserAgent() string {
	return "country-lookup/" + Current + " (+github.com/shpitdev/country-lookup)"
}
