// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import "strings"

// extractJSONObject strips markdown fences and any prose around the first
// top-level JSON object in s. If no braces are present s is returned trimmed.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// repairJSON attempts to fix common JSON formatting issues from LLM responses.
// It quotes bare object keys and drops trailing commas before a closing
// brace or bracket. Text inside string literals is left untouched.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	inString := false
	escaped := false
	for i := 0; i < len(in); i++ {
		ch := in[i]

		if inString {
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out = append(out, ch)

		case ',':
			// Drop the comma if only whitespace separates it from } or ].
			j := i + 1
			for j < len(in) && isSpace(in[j]) {
				j++
			}
			if j < len(in) && (in[j] == '}' || in[j] == ']') {
				continue
			}
			out = append(out, ch)
			out, i = quoteBareKey(in, out, i+1)

		case '{':
			out = append(out, ch)
			out, i = quoteBareKey(in, out, i+1)

		default:
			out = append(out, ch)
		}
	}

	return string(out)
}

// quoteBareKey copies whitespace starting at pos and, if a bare identifier
// followed by a colon comes next, emits it quoted. It returns the new
// output and the index of the last consumed rune.
func quoteBareKey(in, out []rune, pos int) ([]rune, int) {
	i := pos
	for i < len(in) && isSpace(in[i]) {
		out = append(out, in[i])
		i++
	}
	if i >= len(in) || !isLetter(in[i]) {
		return out, i - 1
	}

	keyStart := i
	for i < len(in) && (isLetter(in[i]) || in[i] == '_' || (in[i] >= '0' && in[i] <= '9')) {
		i++
	}
	keyEnd := i

	// A key missing only its opening quote: min_lat": 5
	if i < len(in) && in[i] == '"' {
		out = append(out, '"')
		out = append(out, in[keyStart:keyEnd]...)
		out = append(out, '"')
		return out, keyEnd
	}

	j := i
	for j < len(in) && isSpace(in[j]) {
		j++
	}
	if j < len(in) && in[j] == ':' {
		out = append(out, '"')
		out = append(out, in[keyStart:keyEnd]...)
		out = append(out, '"')
		return out, keyEnd - 1
	}

	out = append(out, in[keyStart:keyEnd]...)
	return out, keyEnd - 1
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
