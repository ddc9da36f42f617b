// Package motd converts server messages using legacy '§' formatting codes into
// plain text and HTML markup.
package motd

import (
	"html"
	"regexp"
	"strings"
)

// Section is the formatting code prefix.
const Section = '§'

var codeRe = regexp.MustCompile(`§[0-9a-fk-orA-FK-OR]?`)

// colors maps colour codes to their CSS value.
var colors = map[byte]string{
	'0': "#000000",
	'1': "#0000AA",
	'2': "#00AA00",
	'3': "#00AAAA",
	'4': "#AA0000",
	'5': "#AA00AA",
	'6': "#FFAA00",
	'7': "#AAAAAA",
	'8': "#555555",
	'9': "#5555FF",
	'a': "#55FF55",
	'b': "#55FFFF",
	'c': "#FF5555",
	'd': "#FF55FF",
	'e': "#FFFF55",
	'f': "#FFFFFF",
}

// styles maps style codes to their CSS declaration.
var styles = map[byte]string{
	'l': "font-weight: bold",
	'm': "text-decoration: line-through",
	'n': "text-decoration: underline",
	'o': "font-style: italic",
}

// names maps JSON chat colour names to colour codes.
var names = map[string]byte{
	"black":        '0',
	"dark_blue":    '1',
	"dark_green":   '2',
	"dark_aqua":    '3',
	"dark_red":     '4',
	"dark_purple":  '5',
	"gold":         '6',
	"gray":         '7',
	"dark_gray":    '8',
	"blue":         '9',
	"green":        'a',
	"aqua":         'b',
	"red":          'c',
	"light_purple": 'd',
	"yellow":       'e',
	"white":        'f',
}

// ColorCode returns the legacy code for a JSON chat colour name.
func ColorCode(name string) (byte, bool) {
	c, ok := names[strings.ToLower(name)]
	return c, ok
}

// Clean strips all formatting codes.
func Clean(s string) string {
	return codeRe.ReplaceAllString(s, "")
}

// Lines splits s on line breaks.
func Lines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// HTML renders s as escaped text wrapped in <span> elements carrying the colour
// and style of each run. A colour code or §r closes all open spans.
func HTML(s string) string {
	var b strings.Builder
	open := 0

	closeAll := func() {
		for ; open > 0; open-- {
			b.WriteString("</span>")
		}
	}

	rest := s
	for {
		i := strings.IndexRune(rest, Section)
		if i < 0 {
			b.WriteString(html.EscapeString(rest))
			break
		}
		b.WriteString(html.EscapeString(rest[:i]))
		rest = rest[i+len(string(Section)):]
		if rest == "" {
			break
		}

		code := lower(rest[0])
		rest = rest[1:]

		if color, ok := colors[code]; ok {
			closeAll()
			b.WriteString(`<span style="color: ` + color + `">`)
			open++
			continue
		}
		if style, ok := styles[code]; ok {
			b.WriteString(`<span style="` + style + `">`)
			open++
			continue
		}
		if code == 'r' {
			closeAll()
		}
		// §k (obfuscated) and unknown codes render as nothing.
	}
	closeAll()

	return b.String()
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
