package pipeline

import "testing"

func TestEnvCredentialsFromEnvironment(t *testing.T) {
	t.Setenv("ECOLENS_SEARCH_SERPAPIKEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	c := EnvCredentials{}
	if c.SearchAvailable() || c.GenerationAvailable() {
		t.Error("no keys anywhere, both capabilities should be absent")
	}

	t.Setenv("ECOLENS_SEARCH_SERPAPIKEY", "serp-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	if !c.SearchAvailable() || !c.GenerationAvailable() {
		t.Error("keys in the environment should be picked up per call")
	}
}

func TestEnvCredentialsConfiguredFallback(t *testing.T) {
	t.Setenv("ECOLENS_SEARCH_SERPAPIKEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	c := EnvCredentials{SearchKey: "configured-serp", GenerationKey: "configured-openai"}
	if !c.SearchAvailable() {
		t.Error("configured search key not honored")
	}
	if !c.GenerationAvailable() {
		t.Error("configured generation key not honored")
	}
}

func TestEnvCredentialsAllowScrape(t *testing.T) {
	t.Setenv("ECOLENS_SEARCH_SERPAPIKEY", "")

	c := EnvCredentials{AllowScrape: true}
	if !c.SearchAvailable() {
		t.Error("scrape transport should count as a present search capability")
	}
	if c.GenerationAvailable() {
		t.Error("scrape flag must not imply a generation credential")
	}
}
