package shell

import (
	"strings"
)

func escapeName(name string) string {
	return strings.ReplaceAll(name, " ", `\ `)
}

// updateCompletions rebuilds the snapshot of builtin names and working
// directory entries.
func (s *Shell) updateCompletions() {
	completions := s.builtins.Names()

	entries := append(s.fs.ListDirectories(s.work), s.fs.ListFiles(s.work)...)
	for _, name := range entries {
		escaped := escapeName(name)
		completions = append(completions,
			"."+Separator+escaped,
			escaped,
			`"`+name+`"`,
			`"`+"."+Separator+name+`"`,
		)
	}

	s.completions = completions
}

// Complete returns autocomplete candidates for a partially typed word: the
// snapshot, then entries of the directory the word points into whose names
// start with what was typed, ignoring case. Candidates may repeat.
func (s *Shell) Complete(word string) []string {
	out := append([]string(nil), s.completions...)

	dirPart := ""
	if idx := strings.LastIndex(word, Separator); idx >= 0 {
		dirPart = word[:idx+1]
	}
	dir := s.ResolvePath(dirPart)
	if !s.fs.DirectoryExists(dir) {
		return out
	}

	lowerWord := strings.ToLower(word)
	matches := func(name string) bool {
		return strings.HasPrefix(strings.ToLower(dirPart+name), lowerWord) ||
			strings.HasPrefix(strings.ToLower(dirPart+escapeName(name)), lowerWord)
	}

	for _, name := range s.fs.ListDirectories(dir) {
		if matches(name) {
			out = append(out,
				dirPart+escapeName(name)+Separator,
				`"`+dirPart+name+Separator+`"`,
			)
		}
	}

	for _, name := range s.fs.ListFiles(dir) {
		if matches(name) {
			out = append(out,
				dirPart+escapeName(name),
				`"`+dirPart+name+`"`,
			)
		}
	}

	return out
}
