// Package compliance enforces platform hard bounds on provider output.
// Every provider's raw result goes through Finalize so downstream checks
// see identical normalization regardless of which model produced it.
package compliance

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"stock-metadata-generator/internal/domain/model"
)

const (
	// TitleFiller is appended to titles shorter than the platform minimum.
	TitleFiller = " - Stock Image"
	// Ellipsis marks a truncated description.
	Ellipsis = "..."
)

// Finalize applies title, keyword and description rules in a fixed order.
func Finalize(raw model.Metadata, pc model.PlatformConfig, s model.GenerationSettings) model.Metadata {
	return model.Metadata{
		Title:       NormalizeTitle(raw.Title, pc, s.TitleCase),
		Description: TruncateDescription(strings.TrimSpace(raw.Description), pc.DescMax),
		Keywords:    NormalizeKeywords(raw.Keywords, s, pc.KeywordsMax),
	}
}

func NormalizeTitle(title string, pc model.PlatformConfig, titleCase bool) string {
	title = strings.Join(strings.Fields(title), " ")
	if titleCase {
		title = ToTitleCase(title)
	}
	if pc.TitleMin > 0 && utf8.RuneCountInString(title) < pc.TitleMin {
		title += TitleFiller
	}
	if pc.TitleMax > 0 {
		title = TruncateAtWord(title, pc.TitleMax)
	}
	return title
}

// TruncateAtWord cuts s to at most limit runes, backing off to the last
// whitespace boundary so no word is split. Without a boundary inside the
// limit it hard-truncates.
func TruncateAtWord(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if unicode.IsSpace(r[limit]) {
		return strings.TrimRightFunc(string(r[:limit]), unicode.IsSpace)
	}
	cut := -1
	for i := limit - 1; i > 0; i-- {
		if unicode.IsSpace(r[i]) {
			cut = i
			break
		}
	}
	if cut <= 0 {
		return string(r[:limit])
	}
	return strings.TrimRightFunc(string(r[:cut]), unicode.IsSpace)
}

// ToTitleCase upper-cases the first letter of every word and lower-cases the rest.
func ToTitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// TruncateDescription keeps the result within max runes, ellipsis included.
func TruncateDescription(desc string, max int) string {
	r := []rune(desc)
	if max <= 0 || len(r) <= max {
		return desc
	}
	keep := max - utf8.RuneCountInString(Ellipsis)
	if keep <= 0 {
		return string(r[:max])
	}
	return strings.TrimRightFunc(string(r[:keep]), unicode.IsSpace) + Ellipsis
}

// NormalizeKeywords lowercases, filters, optionally splits, dedupes and caps
// the keyword list. platformMax is ignored when zero.
func NormalizeKeywords(raw []string, s model.GenerationSettings, platformMax int) []string {
	prohibited := prohibitedList(s)
	cleaned := make([]string, 0, len(raw))
	for _, k := range raw {
		k = strings.ToLower(strings.TrimSpace(k))
		if utf8.RuneCountInString(k) <= 1 {
			continue
		}
		if containsAny(k, prohibited) {
			continue
		}
		if s.SingleWordKeywords {
			for _, w := range strings.Fields(k) {
				if utf8.RuneCountInString(w) > 1 {
					cleaned = append(cleaned, w)
				}
			}
			continue
		}
		cleaned = append(cleaned, strings.Join(strings.Fields(k), " "))
	}

	out := Dedupe(cleaned)
	limit := s.KeywordsMax
	if platformMax > 0 && (limit <= 0 || platformMax < limit) {
		limit = platformMax
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Dedupe removes case-insensitive duplicates keeping first-seen order.
func Dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		key := strings.ToLower(k)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	return out
}

func prohibitedList(s model.GenerationSettings) []string {
	if !s.ProhibitedWordsEnabled {
		return nil
	}
	out := make([]string, 0, len(s.ProhibitedWords))
	for _, w := range s.ProhibitedWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
