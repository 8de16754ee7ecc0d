package normalize

import (
	"strings"
	"unicode"
)

var remoteKeywords = []string{
	"remote", "remotely", "remoto", "remota", "trabalho remoto", "100% remoto",
	"home office", "home-office", "homeoffice", "work from home", "wfh",
	"teletrabajo", "teletrabalho", "a distancia", "qualquer lugar",
	"anywhere", "worldwide",
}

var remotePattern = wordPattern(remoteKeywords)

// HasRemoteKeyword reports whether text mentions remote work.
func HasRemoteKeyword(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return remotePattern.MatchString(Fold(text))
}

// IsRemoteOnly reports whether text consists of remote keywords and nothing else,
// as in "Remote" or "Remoto (Worldwide)".
func IsRemoteOnly(text string) bool {
	folded := Fold(text)
	if !remotePattern.MatchString(folded) {
		return false
	}
	// Replace repeatedly: adjacent keywords share the separator the pattern consumes.
	for remotePattern.MatchString(folded) {
		folded = remotePattern.ReplaceAllString(folded, " ")
	}
	return strings.IndexFunc(folded, unicode.IsLetter) < 0
}

// InferRemote decides the remote flag of a job. An explicit flag from
// structured source data always wins; otherwise any text mentioning remote
// work marks the job remote.
func InferRemote(explicit *bool, texts ...string) bool {
	if explicit != nil {
		return *explicit
	}
	for _, text := range texts {
		if HasRemoteKeyword(text) {
			return true
		}
	}
	return false
}
