package signlang

import "strings"

// DefaultVideoURL is returned for any phrase missing from the prerecorded table.
const DefaultVideoURL = "https://cdn.example.com/signs/default.mp4"

var prerecorded = map[string]string{
	"hello":                 "https://cdn.example.com/signs/hello.mp4",
	"help":                  "https://cdn.example.com/signs/help.mp4",
	"water":                 "https://cdn.example.com/signs/water.mp4",
	"thank you":             "https://cdn.example.com/signs/thank_you.mp4",
	"yes":                   "https://cdn.example.com/signs/yes.mp4",
	"no":                    "https://cdn.example.com/signs/no.mp4",
	"where is the hospital": "https://cdn.example.com/signs/where_hospital.mp4",
	"i need help":           "https://cdn.example.com/signs/need_help.mp4",
}

// Normalize is the lookup key for the prerecorded table.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Prerecorded maps text to a prerecorded sign video. It always returns a URL.
func Prerecorded(text, language string) Result {
	url, ok := prerecorded[Normalize(text)]
	if !ok {
		url = DefaultVideoURL
	}
	return Result{
		VideoURL: url,
		Text:     text,
		Language: language,
		Source:   SourcePrerecorded,
	}
}
