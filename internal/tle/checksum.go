package tle

import "strings"

// Checksum computes the mod-10 checksum of a TLE line body (everything but
// the trailing check digit): digits count their value, '-' counts 1, and all
// other characters are ignored.
func Checksum(text string) int {
	sum := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// VerifyChecksum recomputes the checksum of a full TLE line and compares it to
// the trailing digit. Surrounding whitespace is ignored.
func VerifyChecksum(line string) (got, want int, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, 0, false
	}
	last := line[len(line)-1]
	if last < '0' || last > '9' {
		return Checksum(line[:len(line)-1]), -1, false
	}
	got = Checksum(line[:len(line)-1])
	want = int(last - '0')
	return got, want, got == want
}
