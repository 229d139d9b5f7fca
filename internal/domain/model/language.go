package model

// Language maps a contestant-facing slug onto the execution backend's
// numeric runtime id. The catalog is fixed; adding a runtime means the
// backend supports it, so a static table beats a database round trip.
type Language struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	BackendID int    `json:"backend_id"`
}

var languages = map[string]Language{
	"python":     {Slug: "python", Name: "Python (3.8.1)", BackendID: 71},
	"java":       {Slug: "java", Name: "Java (OpenJDK 13.0.1)", BackendID: 62},
	"c":          {Slug: "c", Name: "C (GCC 9.2.0)", BackendID: 50},
	"cpp":        {Slug: "cpp", Name: "C++ (GCC 9.2.0)", BackendID: 54},
	"javascript": {Slug: "javascript", Name: "JavaScript (Node.js 12.14.0)", BackendID: 63},
}

func LanguageBySlug(slug string) (Language, bool) {
	lang, ok := languages[slug]
	return lang, ok
}

func Languages() []Language {
	out := make([]Language, 0, len(languages))
	for _, l := range languages {
		out = append(out, l)
	}
	return out
}
