package timeofday

import (
	"regexp"
	"strconv"
	"strings"
)

type meridiem int

const (
	meridiemNone meridiem = iota
	meridiemAM
	meridiemPM
)

var (
	colonPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	hourMarkPattern = regexp.MustCompile(`^(\d{1,2})h(\d{2})?$`)
	compactPattern  = regexp.MustCompile(`^\d{3,4}$`)
	hourPattern     = regexp.MustCompile(`^\d{1,2}$`)
	attachedPattern = regexp.MustCompile(`^(\d{1,4}(?::\d{2})?)(am|pm|a|p)$`)
	decimalPattern  = regexp.MustCompile(`(\d)\.(\d{2})\b`)
)

var textReplacer = strings.NewReplacer(
	"a.m.", " am ", "p.m.", " pm ", "a. m.", " am ", "p. m.", " pm ",
	"o'clock", " oclock ", "o’clock", " oclock ", "o clock", " oclock ",
	"’", "'", "-", " ", ",", " ", "?", " ", "!", " ", ";", " ", "\"", " ",
)

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fourty": 40, "fifty": 50,
}

var fillerWords = map[string]bool{
	"at": true, "around": true, "about": true, "say": true, "by": true,
	"maybe": true, "approximately": true, "roughly": true,
}

// anchorWords mark a following bare number as a time ("at two", "by 3").
var anchorWords = map[string]bool{
	"at": true, "by": true, "around": true, "about": true, "until": true,
	"till": true, "til": true, "for": true, "say": true,
}

var dayParts = []struct {
	phrase []string
	mer    meridiem
}{
	{[]string{"in", "the", "morning"}, meridiemAM},
	{[]string{"this", "morning"}, meridiemAM},
	{[]string{"morning"}, meridiemAM},
	{[]string{"in", "the", "afternoon"}, meridiemPM},
	{[]string{"this", "afternoon"}, meridiemPM},
	{[]string{"afternoon"}, meridiemPM},
	{[]string{"in", "the", "evening"}, meridiemPM},
	{[]string{"this", "evening"}, meridiemPM},
	{[]string{"evening"}, meridiemPM},
	{[]string{"at", "night"}, meridiemPM},
	{[]string{"tonight"}, meridiemPM},
	{[]string{"am"}, meridiemAM},
	{[]string{"pm"}, meridiemPM},
}

// ParseTimeToMinutes parses a 24-hour ("14:00"), 12-hour ("2:00 PM") or
// loosely spoken ("two thirty", "quarter to four") time. The boolean is false
// when the text cannot be understood; callers must not substitute a default.
//
// Numeric forms without a meridiem are taken literally as 24-hour times.
// Spoken or bare-hour forms without a meridiem assume dock hours: 1-6 are
// afternoon, 7-11 morning.
func ParseTimeToMinutes(text string) (TimeOfDay, bool) {
	tokens := normalizeTokens(text)
	for len(tokens) > 0 && fillerWords[tokens[0]] {
		tokens = tokens[1:]
	}
	return parseTokens(tokens)
}

// ExtractTime finds the first time phrase inside a free-form utterance such as
// "we could do two thirty this afternoon". It returns the parsed time and the
// matched phrase.
func ExtractTime(utterance string) (TimeOfDay, string, bool) {
	const maxWindow = 7
	tokens := normalizeTokens(utterance)
	for start := range tokens {
		end := start + maxWindow
		if end > len(tokens) {
			end = len(tokens)
		}
		for ; end > start; end-- {
			window := tokens[start:end]
			t, ok := parseTokens(window)
			if !ok {
				continue
			}
			if len(window) == 1 && isNumberToken(window[0]) && (start == 0 || !anchorWords[tokens[start-1]]) {
				continue
			}
			return t, strings.Join(window, " "), true
		}
	}
	return 0, "", false
}

func normalizeTokens(text string) []string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = decimalPattern.ReplaceAllString(s, "$1:$2")
	s = textReplacer.Replace(s)
	s = strings.ReplaceAll(s, ".", " ")

	var tokens []string
	for _, tok := range strings.Fields(s) {
		if m := attachedPattern.FindStringSubmatch(tok); m != nil {
			suffix := m[2]
			if len(suffix) == 1 {
				suffix += "m"
			}
			tokens = append(tokens, m[1], suffix)
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func parseTokens(tokens []string) (TimeOfDay, bool) {
	body, mer := splitDayPart(tokens)
	if len(body) == 0 {
		return 0, false
	}

	switch strings.Join(body, " ") {
	case "noon", "midday", "12 noon", "twelve noon":
		if mer == meridiemAM {
			return 0, false
		}
		return FromClock(12, 0), true
	case "midnight", "12 midnight", "twelve midnight":
		if mer == meridiemPM {
			return 0, false
		}
		return 0, true
	}

	if len(body) == 1 {
		if t, ok := parseNumeric(body[0], mer); ok {
			return t, true
		}
	}

	return parseSpoken(body, mer)
}

func splitDayPart(tokens []string) ([]string, meridiem) {
	body := tokens
	mer := meridiemNone
	for changed := true; changed; {
		changed = false
		for _, dp := range dayParts {
			if hasSuffix(body, dp.phrase) {
				if mer != meridiemNone && mer != dp.mer {
					return nil, meridiemNone
				}
				body = body[:len(body)-len(dp.phrase)]
				mer = dp.mer
				changed = true
			}
		}
	}
	return body, mer
}

func hasSuffix(tokens, suffix []string) bool {
	if len(suffix) > len(tokens) {
		return false
	}
	offset := len(tokens) - len(suffix)
	for i, s := range suffix {
		if tokens[offset+i] != s {
			return false
		}
	}
	return true
}

func parseNumeric(tok string, mer meridiem) (TimeOfDay, bool) {
	if m := colonPattern.FindStringSubmatch(tok); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return clock(h, min, mer, true)
	}
	if m := hourMarkPattern.FindStringSubmatch(tok); m != nil && mer == meridiemNone {
		h, _ := strconv.Atoi(m[1])
		min := 0
		if m[2] != "" {
			min, _ = strconv.Atoi(m[2])
		}
		return clock(h, min, mer, true)
	}
	if compactPattern.MatchString(tok) {
		n, _ := strconv.Atoi(tok)
		return clock(n/100, n%100, mer, true)
	}
	if hourPattern.MatchString(tok) {
		h, _ := strconv.Atoi(tok)
		return clock(h, 0, mer, false)
	}
	return 0, false
}

func parseSpoken(body []string, mer meridiem) (TimeOfDay, bool) {
	last := body[len(body)-1]

	if last == "oclock" {
		h, ok := parseNumber(body[:len(body)-1])
		if !ok {
			return 0, false
		}
		return clock(h, 0, mer, false)
	}

	if last == "hours" && len(body) >= 2 && body[len(body)-2] == "hundred" {
		body = body[:len(body)-1]
		last = "hundred"
	}
	if last == "hundred" {
		h, ok := parseNumber(body[:len(body)-1])
		if !ok {
			return 0, false
		}
		return clock(h, 0, mer, true)
	}

	for i, tok := range body {
		switch tok {
		case "past", "after":
			min, okMin := parseOffsetMinutes(body[:i])
			h, okHour := parseHour(body[i+1:])
			if !okMin || !okHour {
				return 0, false
			}
			return clock(h, min, mer, false)
		case "to", "till", "til":
			min, okMin := parseOffsetMinutes(body[:i])
			h, okHour := parseHour(body[i+1:])
			if !okMin || !okHour || min == 0 {
				return 0, false
			}
			base, ok := clock(h, 0, mer, false)
			if !ok {
				return 0, false
			}
			return AddMinutesToTime(base, -min), true
		}
	}

	if h, ok := parseNumber(body); ok {
		return clock(h, 0, mer, false)
	}

	for split := 1; split < len(body); split++ {
		h, okHour := parseNumber(body[:split])
		min, okMin := parseMinuteTokens(body[split:])
		if okHour && okMin {
			return clock(h, min, mer, false)
		}
	}
	return 0, false
}

// clock applies a meridiem to an hour. literal numeric forms keep 24-hour
// meaning when no meridiem is given; spoken forms use the dock-hours heuristic.
func clock(h, min int, mer meridiem, literal bool) (TimeOfDay, bool) {
	if h < 0 || h > 23 || min < 0 || min > 59 {
		return 0, false
	}
	switch mer {
	case meridiemPM:
		switch {
		case h == 0:
			return 0, false
		case h < 12:
			h += 12
		}
	case meridiemAM:
		switch {
		case h == 12:
			h = 0
		case h > 12:
			return 0, false
		}
	default:
		if !literal && h >= 1 && h <= 6 {
			h += 12
		}
	}
	return FromClock(h, min), true
}

func parseHour(tokens []string) (int, bool) {
	if len(tokens) > 0 && tokens[len(tokens)-1] == "oclock" {
		tokens = tokens[:len(tokens)-1]
	}
	return parseNumber(tokens)
}

// parseOffsetMinutes reads the minutes in "<n> past/to <hour>". Without an
// explicit "minutes" the offset must be a multiple of five, which keeps ranges
// like "two to three" from reading as a time.
func parseOffsetMinutes(tokens []string) (int, bool) {
	explicit := false
	if len(tokens) > 0 && (tokens[len(tokens)-1] == "minutes" || tokens[len(tokens)-1] == "minute") {
		tokens = tokens[:len(tokens)-1]
		explicit = true
	}
	if len(tokens) > 0 && tokens[0] == "a" {
		tokens = tokens[1:]
	}
	if len(tokens) == 1 {
		switch tokens[0] {
		case "half":
			return 30, true
		case "quarter":
			return 15, true
		}
	}
	n, ok := parseNumber(tokens)
	if !ok || n < 1 || n > 59 {
		return 0, false
	}
	if !explicit && n%5 != 0 {
		return 0, false
	}
	return n, true
}

func parseMinuteTokens(tokens []string) (int, bool) {
	if len(tokens) == 2 && (tokens[0] == "oh" || tokens[0] == "o" || tokens[0] == "zero") {
		n, ok := parseNumber(tokens[1:])
		if !ok || n < 1 || n > 9 {
			return 0, false
		}
		return n, true
	}
	n, ok := parseNumber(tokens)
	if !ok || n < 0 || n > 59 {
		return 0, false
	}
	return n, true
}

// parseNumber reads a single number 0-59 written as digits or words.
func parseNumber(tokens []string) (int, bool) {
	switch len(tokens) {
	case 1:
		tok := tokens[0]
		if hourPattern.MatchString(tok) {
			n, err := strconv.Atoi(tok)
			return n, err == nil
		}
		n, ok := numberWords[tok]
		return n, ok
	case 2:
		tens, okTens := numberWords[tokens[0]]
		ones, okOnes := numberWords[tokens[1]]
		if !okTens || !okOnes || tens < 20 || tens%10 != 0 || ones < 1 || ones > 9 {
			return 0, false
		}
		return tens + ones, true
	}
	return 0, false
}

func isNumberToken(tok string) bool {
	if hourPattern.MatchString(tok) {
		return true
	}
	_, ok := numberWords[tok]
	return ok
}
