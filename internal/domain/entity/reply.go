package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Classification разобранный ответ классификатора.
type Classification struct {
	Verdict    Verdict
	Reason     string
	Confidence int
	Raw        string
}

var confidencePattern = regexp.MustCompile(`(?i)[(\[]?\s*confidence\s*[:=]?\s*(\d{1,3})\s*%?\s*[)\]]?`)

// ParseReply строго разбирает ответ вида "ACCEPT - причина (Confidence: 95%)".
// Ответ обязан начинаться со слова ACCEPT или REJECT, иначе это ErrPermanentClassification.
func ParseReply(text string) (Classification, error) {
	raw := strings.TrimSpace(text)
	out := Classification{Raw: raw}

	verdict, rest, ok := leadingVerdict(raw)
	if !ok {
		return out, Wrap(ErrPermanentClassification, "parse reply", fmt.Errorf("unexpected verdict in %q", snippet(raw)))
	}
	out.Verdict = verdict

	if m := confidencePattern.FindStringSubmatchIndex(rest); m != nil {
		n, err := strconv.Atoi(rest[m[2]:m[3]])
		if err == nil {
			out.Confidence = clampConfidence(n)
		}
		rest = rest[:m[0]] + rest[m[1]:]
	}
	out.Reason = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(rest), "-–—:.,"))
	out.Reason = strings.TrimRight(out.Reason, " .,;-–—")
	return out, nil
}

func leadingVerdict(s string) (Verdict, string, bool) {
	for _, v := range []Verdict{VerdictAccept, VerdictReject} {
		token := string(v)
		if len(s) < len(token) || !strings.EqualFold(s[:len(token)], token) {
			continue
		}
		rest := s[len(token):]
		if rest != "" {
			r := []rune(rest)[0]
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return VerdictNone, "", false
			}
		}
		return v, rest, true
	}
	return VerdictNone, "", false
}

func clampConfidence(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func snippet(s string) string {
	const limit = 80
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
