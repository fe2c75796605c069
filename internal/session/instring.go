package session

// InString reports whether the character typed just before pos sits inside
// a string literal. Quotes are counted from the start of the text; \" and
// "" pairs do not toggle, and the typed character itself is not counted.
func InString(text string, pos int) bool {
	end := min(pos, len(text))
	open := false
	for i := 0; i < end; {
		if i+2 < end {
			if pair := text[i : i+2]; pair == `\"` || pair == `""` {
				i += 2
				continue
			}
		}
		if i+1 < end && text[i] == '"' {
			open = !open
		}
		i++
	}
	return open
}
