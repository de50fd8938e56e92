// Package runtimeconfig resolves the public runtime settings shared with
// browser code: the hosted database endpoint and its anon access token.
//
// Values come from three tiers, highest priority first: the global
// (explicitly set) configuration, values injected from the process
// environment at deploy time, and fallback constants compiled into the
// binary. A lower tier only fills a field the tiers above it left empty.
package runtimeconfig

import (
	"os"
	"sync"
)

// Fallback constants. Override at build time with
//
//	-ldflags "-X github.com/zerovacancy/zerovacancy-sub004/runtimeconfig.DefaultDatabaseURL=..."
var (
	DefaultDatabaseURL = "http://localhost:54321"
	DefaultAccessToken = ""
)

// Environment keys for the injected tier, in lookup order.
var (
	urlKeys   = []string{"VITE_SUPABASE_URL", "SUPABASE_URL"}
	tokenKeys = []string{"VITE_SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY"}
)

// Values is one tier's view of the runtime settings. Empty means unset.
type Values struct {
	DatabaseURL string
	AccessToken string
}

// Public returns the settings under the keys browser code reads from
// window.__ENV__.
func (v Values) Public() map[string]string {
	return map[string]string{
		"VITE_SUPABASE_URL":      v.DatabaseURL,
		"VITE_SUPABASE_ANON_KEY": v.AccessToken,
	}
}

// Complete reports whether both settings are present.
func (v Values) Complete() bool {
	return v.DatabaseURL != "" && v.AccessToken != ""
}

// Tier identifies where a resolved value came from.
type Tier int

const (
	TierNone Tier = iota
	TierGlobal
	TierInjected
	TierFallback
)

func (t Tier) String() string {
	switch t {
	case TierGlobal:
		return "global"
	case TierInjected:
		return "injected"
	case TierFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Resolution is the merged result together with the tier that supplied
// each field.
type Resolution struct {
	Values
	URLSource   Tier
	TokenSource Tier
}

// Missing lists the environment names of settings no tier supplied.
func (r Resolution) Missing() []string {
	var out []string
	if r.URLSource == TierNone {
		out = append(out, urlKeys[0])
	}
	if r.TokenSource == TierNone {
		out = append(out, tokenKeys[0])
	}
	return out
}

// Resolve merges the tiers field by field. A value set on a higher tier is
// never replaced by a lower one.
func Resolve(global, injected, fallback Values) Resolution {
	var r Resolution
	r.DatabaseURL, r.URLSource = firstSet(global.DatabaseURL, injected.DatabaseURL, fallback.DatabaseURL)
	r.AccessToken, r.TokenSource = firstSet(global.AccessToken, injected.AccessToken, fallback.AccessToken)
	return r
}

func firstSet(global, injected, fallback string) (string, Tier) {
	switch {
	case global != "":
		return global, TierGlobal
	case injected != "":
		return injected, TierInjected
	case fallback != "":
		return fallback, TierFallback
	}
	return "", TierNone
}

// FromEnv builds the injected tier using lookup (os.LookupEnv in production).
func FromEnv(lookup func(string) (string, bool)) Values {
	return Values{
		DatabaseURL: lookupFirst(lookup, urlKeys),
		AccessToken: lookupFirst(lookup, tokenKeys),
	}
}

func lookupFirst(lookup func(string) (string, bool), keys []string) string {
	for _, k := range keys {
		if v, ok := lookup(k); ok && v != "" {
			return v
		}
	}
	return ""
}

// Fallback returns the compiled-in tier.
func Fallback() Values {
	return Values{DatabaseURL: DefaultDatabaseURL, AccessToken: DefaultAccessToken}
}

// Logger is the subset of echo.Logger used for configuration warnings.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// Load resolves the three tiers and logs a warning for every problem found.
// It never fails: unresolved settings are left empty and the database
// client built from them fails on first use.
func Load(global Values, lookup func(string) (string, bool), logger Logger) Resolution {
	r := Resolve(global, FromEnv(lookup), Fallback())
	if logger == nil {
		return r
	}
	for _, key := range r.Missing() {
		logger.Warnf("runtime config: %s is not set by any tier; database calls will fail", key)
	}
	for _, w := range tokenWarnings(r.AccessToken) {
		logger.Warnf("runtime config: %s", w)
	}
	return r
}

var current struct {
	once sync.Once
	res  Resolution
}

// Init populates the process-wide configuration. Only the first call has
// any effect; later calls return the stored resolution unchanged.
func Init(global Values, logger Logger) Resolution {
	current.once.Do(func() {
		current.res = Load(global, os.LookupEnv, logger)
	})
	return current.res
}

// Current returns the process-wide configuration, initialising it from the
// environment without an explicit tier if Init has not run.
func Current() Resolution {
	return Init(Values{}, nil)
}
