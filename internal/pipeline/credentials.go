package pipeline

import "os"

// Credentials is the capability-presence oracle. The orchestrator consults it
// exactly once per run; both capabilities must be present for a live run, any
// absence degrades the whole call to simulation. Partial-live runs would need
// a split provenance flag, which the record model forbids.
type Credentials interface {
	SearchAvailable() bool
	GenerationAvailable() bool
}

// EnvCredentials reads presence from the environment on every check, falling
// back to configured keys, so credentials added or revoked at runtime take
// effect on the next call.
type EnvCredentials struct {
	SearchKey     string
	GenerationKey string
	// AllowScrape treats the keyless scrape transport as a present search
	// capability.
	AllowScrape bool
}

func (c EnvCredentials) SearchAvailable() bool {
	if c.AllowScrape {
		return true
	}
	return firstNonEmpty(os.Getenv("ECOLENS_SEARCH_SERPAPIKEY"), c.SearchKey) != ""
}

func (c EnvCredentials) GenerationAvailable() bool {
	return firstNonEmpty(os.Getenv("OPENAI_API_KEY"), c.GenerationKey) != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
