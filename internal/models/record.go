package models

// PageContent is what the fetcher hands downstream. Both fields are always
// populated: fetch failures degrade into sentinel values instead of leaving
// the struct partially empty, so later stages never branch on absence.
// Degraded marks a value substituted after a failure.
type PageContent struct {
	Title    string
	Excerpt  string
	Degraded bool
}

// Enrichment is the summary and category pair derived from page content.
// Fallback marks the sentinel pair returned when the model call failed or
// the response did not match the expected output format.
type Enrichment struct {
	Summary  string
	Category string
	Fallback bool
}

// CapturedRecord is the terminal payload written to the document store.
// Constructed once after fetch and enrichment complete; never mutated.
type CapturedRecord struct {
	URL      string
	Title    string
	Summary  string
	Category string
}

// OAuthToken is the delegated credential obtained from a single
// authorization-code exchange. It is never persisted.
type OAuthToken struct {
	AccessToken   string
	WorkspaceName string
}
