package engine

import (
	"regexp"
	"strings"
)

var thinkPattern = regexp.MustCompile(`(?is)<think>(.*?)</think>`)

// ParseThinking splits a raw model reply into narrative prose and the
// planning text the model wrote inside <think>...</think> tags. Replies
// without think tags come back unchanged as narrative.
func ParseThinking(raw string) (narrative, thinking string) {
	matches := thinkPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(raw), ""
	}

	var narrativeParts, thinkingParts []string
	last := 0
	for _, m := range matches {
		if part := strings.TrimSpace(raw[last:m[0]]); part != "" {
			narrativeParts = append(narrativeParts, part)
		}
		if part := strings.TrimSpace(raw[m[2]:m[3]]); part != "" {
			thinkingParts = append(thinkingParts, part)
		}
		last = m[1]
	}
	if part := strings.TrimSpace(raw[last:]); part != "" {
		narrativeParts = append(narrativeParts, part)
	}

	return strings.Join(narrativeParts, "\n"), strings.Join(thinkingParts, "\n")
}

// WrapGuidance wraps guidance text in an XML tag so prompts can mark an
// instruction apart from prose. The tag may be given bare ("instruction") or
// bracketed ("<instruction>"); attributes after the tag name are dropped.
// Empty guidance or an empty tag returns the guidance unchanged.
func WrapGuidance(tag, guidance string) string {
	if guidance == "" {
		return guidance
	}
	name := strings.Trim(strings.TrimSpace(tag), "<>")
	if fields := strings.Fields(name); len(fields) > 0 {
		name = fields[0]
	} else {
		name = ""
	}
	if name == "" {
		return guidance
	}
	return "<" + name + ">" + guidance + "</" + name + ">"
}
