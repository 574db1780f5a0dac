package config

import "strings"

// CORSConfig lists the browser origins allowed to call the API with
// credentials.  FrontendURL is appended to AllowedOrigins so a deployment
// only has to set the one variable.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	FrontendURL    string   `env:"FRONTEND_URL"`
}

// Origins returns the trimmed, de-duplicated allow-list.
func (c CORSConfig) Origins() []string {
	seen := make(map[string]bool, len(c.AllowedOrigins)+1)
	out := make([]string, 0, len(c.AllowedOrigins)+1)
	for _, o := range append(append([]string(nil), c.AllowedOrigins...), c.FrontendURL) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}
