package textutil

import "strings"

// MinDetectChars is the shortest title worth running detection on. Shorter
// titles carry too little signal and must be kept by callers.
const MinDetectChars = 15

// stopwordProfiles map a language code to its most frequent function words.
// Detection counts distinct stopword hits per language over the title tokens.
// The profiles favor precision on headline-length text; ambiguous titles fail
// detection and are kept by the caller.
var stopwordProfiles = map[string][]string{
	"da": {"og", "i", "at", "det", "er", "til", "en", "af", "for", "på", "med", "der", "ikke", "har", "om", "kan", "skal", "efter", "nye", "så"},
	"en": {"the", "and", "of", "to", "in", "is", "for", "on", "with", "that", "as", "at", "by", "from", "this", "are", "new", "after", "has", "will"},
	"sv": {"och", "i", "att", "det", "är", "som", "en", "på", "av", "för", "med", "den", "inte", "har", "om", "till", "efter", "nya", "ska", "så"},
	"de": {"der", "die", "das", "und", "in", "von", "zu", "mit", "ist", "auf", "für", "den", "nicht", "ein", "eine", "nach", "hat", "wird", "bei", "im"},
	"fr": {"le", "la", "les", "de", "des", "et", "un", "une", "en", "est", "pour", "dans", "que", "qui", "sur", "avec", "au", "pas", "plus", "après"},
	"es": {"el", "la", "los", "las", "de", "y", "un", "una", "en", "es", "por", "para", "que", "con", "del", "se", "no", "más", "tras", "su"},
}

var stopwordIndex = buildStopwordIndex()

func buildStopwordIndex() map[string]map[string]struct{} {
	index := make(map[string]map[string]struct{}, len(stopwordProfiles))
	for lang, words := range stopwordProfiles {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		index[lang] = set
	}
	return index
}

// DetectLanguage guesses the language of headline-length text by counting
// distinct stopword hits per language profile. Returns ok=false when the
// text is too short, no language reaches two hits, or two languages tie.
// Callers treat a failed detection as "keep".
func DetectLanguage(text string) (string, bool) {
	if len([]rune(strings.TrimSpace(text))) < MinDetectChars {
		return "", false
	}

	tokens := strings.Fields(NormalizeTitle(text))
	if len(tokens) == 0 {
		return "", false
	}

	scores := make(map[string]int, len(stopwordIndex))
	for lang, set := range stopwordIndex {
		seen := make(map[string]struct{})
		for _, token := range tokens {
			if _, hit := set[token]; hit {
				seen[token] = struct{}{}
			}
		}
		scores[lang] = len(seen)
	}

	best, bestLang := 0, ""
	tie := false
	for lang, score := range scores {
		switch {
		case score > best:
			best, bestLang, tie = score, lang, false
		case score == best && score > 0:
			tie = true
		}
	}

	if best < 2 || tie {
		return "", false
	}
	return bestLang, true
}
