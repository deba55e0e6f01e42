// Package guide provides the embedded help pages shown by "ipfa guide" and
// the chat assistant's instructions.
package guide

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed *.md
var files embed.FS

// Agent is the page holding the chat assistant's system prompt. It is not
// listed as a topic.
const Agent = "agent"

// Get returns the content of a guide page by name. If `name` is empty
// the default "guide" page is returned.
func Get(name string) (string, error) {
	if name == "" {
		name = "guide"
	}
	data, err := files.ReadFile(name + ".md")
	if err != nil {
		return "", fmt.Errorf("guide %q not found", name)
	}
	return string(data), nil
}

// List returns the topic page names (without the .md suffix), sorted.
func List() ([]string, error) {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".md")
		if name != "guide" && name != Agent {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
