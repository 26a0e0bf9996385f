// Package prompt holds the system prompts, one per use case.
package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Default is the use case used when none is chosen.
const Default = "painter"

const painterBase = `You are a meticulous, diligent perfectionist painter AI who never skimps on detail.
The user gives you a subject. Draw it as an SVG document and pass it to the svg2png tool.
The svg2png tool renders your SVG and returns the PNG image to you.
Check the returned image, draw a corrected SVG, call svg2png again, and keep refining the picture this way.
%sWhen you are satisfied that the picture fully meets the subject, call the complete tool.
Before creating or revising an image, always record your thinking with the write tool in append mode ("at"):
in English to ./work/thinking_en.txt and in Japanese to ./work/thinking_jp.txt.
You do not need to converse with the user. Work quietly using only the tools you are given.`

var usecases = map[string]string{
	"painter": fmt.Sprintf(painterBase, ""),
	"layered-painter": fmt.Sprintf(painterBase,
		"Do not draw everything at once. Plan the picture in layers and build it up gradually.\n"),
}

// System returns the system prompt for a use case.
func System(usecase string) (string, error) {
	if usecase == "" {
		usecase = Default
	}
	p, ok := usecases[usecase]
	if !ok {
		return "", fmt.Errorf("unknown usecase %q (available: %s)", usecase, strings.Join(Usecases(), ", "))
	}
	return p, nil
}

// Usecases returns the known use case names in sorted order.
func Usecases() []string {
	names := make([]string, 0, len(usecases))
	for name := range usecases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
