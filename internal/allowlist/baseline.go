package allowlist

// Baseline returns the compiled-in allow-list. These extensions are protected
// unconditionally: no remote configuration can remove or demote them, and a
// remote entry with the same id is ignored in favor of the baseline one.
func Baseline() []Entry {
	return []Entry{
		{
			ID:       "cdoohoadkbmcfcjfmnbflkeiaehijdfp",
			Source:   SourceStatic,
			Location: "https://clients.extgov.dev/assistant/updates.xml",
		},
		{
			ID:       "jlmfpjmhemmldnakgmhbnnklejfofhcm",
			Source:   SourceStatic,
			Location: "https://clients.extgov.dev/newtab/updates.xml",
		},
	}
}
