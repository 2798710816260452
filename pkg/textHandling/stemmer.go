package textHandling

import (
	"slices"
	"strings"
)

// suffixRule rewrites suffix to replacement when condition holds for the
// remaining stem. A nil condition always holds. The "*d" suffix matches any
// doubled final consonant.
type suffixRule struct {
	suffix 		string
	replacement string
	condition 	func(stem string) bool
}

type englishStemmer struct {
	irregular 	map[string]string
	step1aRules []suffixRule
	step2Rules 	[]suffixRule
	step3Rules 	[]suffixRule
	step4Rules 	[]suffixRule
}

var defaultStemmer = NewEnglishStemmer()

// Stem reduces word to its Porter stem using the shared rule tables.
func Stem(word string) string {
	return defaultStemmer.Stem(word)
}

func NewEnglishStemmer() *englishStemmer {
	positive := hasPositiveMeasure
	greaterThanOne := func(stem string) bool {
		return measure(stem) > 1
	}
	return &englishStemmer{
		irregular: map[string]string{
			"skies":    "sky",
			"sky":      "sky",
			"dying":    "die",
			"lying":    "lie",
			"tying":    "tie",
			"news":     "news",
			"innings":  "inning",
			"inning":   "inning",
			"outings":  "outing",
			"outing":   "outing",
			"cannings": "canning",
			"canning":  "canning",
			"howe":     "howe",
			"proceed":  "proceed",
			"exceed":   "exceed",
			"succeed":  "succeed",
		},
		step1aRules: []suffixRule{
			{"sses", "ss", nil}, // caresses -> caress
			{"ies", "i", nil},   // ponies -> poni
			{"ss", "ss", nil},   // caress -> caress
			{"s", "", nil},      // cats -> cat
		},
		step2Rules: []suffixRule{
			{"ational", "ate", positive}, // relational -> relate
			{"tional", "tion", positive}, // conditional -> condition
			{"enci", "ence", positive},
			{"anci", "ance", positive},
			{"izer", "ize", positive},
			{"bli", "ble", positive},
			{"entli", "ent", positive},
			{"eli", "e", positive},
			{"ousli", "ous", positive},
			{"ization", "ize", positive},
			{"ation", "ate", positive},
			{"ator", "ate", positive},
			{"alism", "al", positive},
			{"iveness", "ive", positive},
			{"fulness", "ful", positive},
			{"ousness", "ous", positive},
			{"aliti", "al", positive},
			{"iviti", "ive", positive},
			{"biliti", "ble", positive},
			{"fulli", "ful", positive},
		},
		step3Rules: []suffixRule{
			{"icate", "ic", positive},
			{"ative", "", positive},
			{"alize", "al", positive},
			{"iciti", "ic", positive},
			{"ical", "ic", positive},
			{"ful", "", positive},
			{"ness", "", positive},
		},
		step4Rules: []suffixRule{
			{"al", "", greaterThanOne},
			{"ance", "", greaterThanOne},
			{"ence", "", greaterThanOne},
			{"er", "", greaterThanOne},
			{"ic", "", greaterThanOne},
			{"able", "", greaterThanOne},
			{"ible", "", greaterThanOne},
			{"ant", "", greaterThanOne},
			{"ement", "", greaterThanOne},
			{"ment", "", greaterThanOne},
			{"ent", "", greaterThanOne},
			{"ion", "", func(stem string) bool {
				return measure(stem) > 1 && (strings.HasSuffix(stem, "s") || strings.HasSuffix(stem, "t"))
			}},
			{"ou", "", greaterThanOne},
			{"ism", "", greaterThanOne},
			{"ate", "", greaterThanOne},
			{"iti", "", greaterThanOne},
			{"ous", "", greaterThanOne},
			{"ive", "", greaterThanOne},
			{"ize", "", greaterThanOne},
		},
	}
}

func (s *englishStemmer) Stem(word string) string {
	word = strings.ToLower(word)
	if stem, ok := s.irregular[word]; ok {
		return stem
	}
	if len(word) <= 2 {
		return word
	}

	word = s.step1a(word)
	word = s.step1b(word)
	word = s.step1c(word)
	word = s.step2(word)
	word = applyRules(word, s.step3Rules)
	word = applyRules(word, s.step4Rules)
	word = s.step5a(word)
	return s.step5b(word)
}

func (s *englishStemmer) step1a(word string) string {
	if len(word) == 4 && strings.HasSuffix(word, "ies") {
		return word[:1] + "ie"
	}
	return applyRules(word, s.step1aRules)
}

func (s *englishStemmer) step1b(word string) string {
	if strings.HasSuffix(word, "ied") {
		if len(word) == 4 {
			return word[:1] + "ie"
		}
		return word[:len(word)-3] + "i"
	}

	if strings.HasSuffix(word, "eed") {
		stem := word[:len(word)-3]
		if measure(stem) > 0 {
			return stem + "ee"
		}
		return word
	}

	var stem string
	stripped := false
	for _, suffix := range []string{"ed", "ing"} {
		if strings.HasSuffix(word, suffix) {
			stem = word[:len(word)-len(suffix)]
			if containsVowel(stem) {
				stripped = true
				break
			}
		}
	}
	if !stripped {
		return word
	}

	last := stem[len(stem)-1:]
	return applyRules(stem, []suffixRule{
		{"at", "ate", nil},
		{"bl", "ble", nil},
		{"iz", "ize", nil},
		{"*d", last, func(string) bool {
			return last != "l" && last != "s" && last != "z"
		}},
		{"", "e", func(stem string) bool {
			return measure(stem) == 1 && endsCVC(stem)
		}},
	})
}

// step1c turns a trailing y into i when the letter before it is a consonant
// and the stem still holds a vowel.
func (s *englishStemmer) step1c(word string) string {
	return applyRules(word, []suffixRule{
		{"y", "i", func(stem string) bool {
			return len(stem) > 1 && isConsonant(stem, len(stem)-1) && containsVowel(stem)
		}},
	})
}

func (s *englishStemmer) step2(word string) string {
	// alli is rewritten first and the result goes through the step again.
	if strings.HasSuffix(word, "alli") && hasPositiveMeasure(word[:len(word)-4]) {
		return s.step2(word[:len(word)-4] + "al")
	}

	rules := slices.Concat(s.step2Rules, []suffixRule{{"logi", "log", func(string) bool {
		// the l of logi stays with the stem so short stems like geo still qualify
		return hasPositiveMeasure(word[:len(word)-3])
	}}})
	return applyRules(word, rules)
}

func (s *englishStemmer) step5a(word string) string {
	if !strings.HasSuffix(word, "e") {
		return word
	}
	stem := word[:len(word)-1]
	m := measure(stem)
	if m > 1 || (m == 1 && !endsCVC(stem)) {
		return stem
	}
	return word
}

func (s *englishStemmer) step5b(word string) string {
	return applyRules(word, []suffixRule{
		{"ll", "l", func(string) bool {
			return measure(word[:len(word)-1]) > 1
		}},
	})
}

// applyRules commits the first rule whose suffix matches. If that rule's
// condition fails the word comes back unchanged; later rules are not tried.
func applyRules(word string, rules []suffixRule) string {
	for _, rule := range rules {
		if rule.suffix == "*d" {
			if !endsDoubleConsonant(word) {
				continue
			}
			stem := word[:len(word)-2]
			if rule.condition == nil || rule.condition(stem) {
				return stem + rule.replacement
			}
			return word
		}
		if strings.HasSuffix(word, rule.suffix) {
			stem := word[:len(word)-len(rule.suffix)]
			if rule.condition == nil || rule.condition(stem) {
				return stem + rule.replacement
			}
			return word
		}
	}
	return word
}

func isVowelLetter(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// isConsonant reports whether word[i] is a consonant. y is a consonant at
// the start of a word or after a vowel.
func isConsonant(word string, i int) bool {
	if isVowelLetter(word[i]) {
		return false
	}
	if word[i] == 'y' {
		if i == 0 {
			return true
		}
		return !isConsonant(word, i-1)
	}
	return true
}

// measure returns m in the [C](VC)^m[V] form of stem.
func measure(stem string) int {
	m := 0
	prevVowel := false
	for i := range len(stem) {
		if isConsonant(stem, i) {
			if prevVowel {
				m++
			}
			prevVowel = false
		} else {
			prevVowel = true
		}
	}
	return m
}

func hasPositiveMeasure(stem string) bool {
	return measure(stem) > 0
}

func containsVowel(stem string) bool {
	for i := range len(stem) {
		if !isConsonant(stem, i) {
			return true
		}
	}
	return false
}

func endsDoubleConsonant(word string) bool {
	n := len(word)
	return n >= 2 && word[n-1] == word[n-2] && isConsonant(word, n-1)
}

// endsCVC reports a consonant-vowel-consonant ending whose last letter is
// not w, x or y. Two letter words of the form vowel-consonant also count.
func endsCVC(word string) bool {
	n := len(word)
	if n >= 3 && isConsonant(word, n-3) && !isConsonant(word, n-2) && isConsonant(word, n-1) {
		switch word[n-1] {
		case 'w', 'x', 'y':
			return false
		}
		return true
	}
	return n == 2 && !isConsonant(word, 0) && isConsonant(word, 1)
}
