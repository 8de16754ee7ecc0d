package normalize

import (
	"regexp"

	"github.com/jimezsa/jobharvest/internal/models"
)

type jobTypeVocabulary struct {
	jobType models.JobType
	pattern *regexp.Regexp
}

// Keywords are matched against folded text, so accents are omitted here.
var jobTypeVocabularies = []jobTypeVocabulary{
	{models.JobTypeFullTime, wordPattern([]string{
		"full time", "full-time", "full_time", "fulltime", "tempo integral", "clt", "efetivo",
		"vacancy_type_effective", "tiempo completo", "jornada completa", "vollzeit",
		"temps plein", "cdi",
	})},
	{models.JobTypePartTime, wordPattern([]string{
		"part time", "part-time", "part_time", "parttime", "meio periodo", "meio-periodo", "tempo parcial",
		"parcial", "medio tiempo", "media jornada", "teilzeit", "temps partiel",
	})},
	{models.JobTypeContract, wordPattern([]string{
		"contract", "contractor", "freelance", "freelancer", "autonomo", "pj",
		"pessoa juridica", "prestador de servicos", "vacancy_type_legal_entity",
		"vacancy_type_autonomous", "freiberuflich",
	})},
	{models.JobTypeInternship, wordPattern([]string{
		"internship", "intern", "estagio", "estagiario", "estagiaria", "vacancy_type_internship",
		"pasantia", "praktikum", "werkstudent",
	})},
	{models.JobTypeTemporary, wordPattern([]string{
		"temporary", "temp", "temporario", "temporaria", "vacancy_type_temporary",
		"temporal", "befristet", "seasonal",
	})},
}

// JobTypes classifies free text into the shared job type vocabulary. Text may
// name several types ("Full-time, Contract"); the result follows
// models.JobTypeOrder. Unknown text yields nil.
func JobTypes(text string) []models.JobType {
	if text == "" {
		return nil
	}
	folded := Fold(text)
	var out []models.JobType
	for _, vocab := range jobTypeVocabularies {
		if vocab.pattern.MatchString(folded) {
			out = append(out, vocab.jobType)
		}
	}
	return out
}

// ParseJobType maps a single canonical or user supplied name to a JobType.
func ParseJobType(value string) (models.JobType, bool) {
	types := JobTypes(value)
	if len(types) != 1 {
		for _, jt := range models.JobTypeOrder {
			if string(jt) == Fold(value) {
				return jt, true
			}
		}
		return "", false
	}
	return types[0], true
}
