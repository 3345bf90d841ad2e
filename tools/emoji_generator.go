// Package main generates the reaction shortcode table of the migrator from
// the emoji index shipped with the Mattermost web app, which uses the same
// short names as Rocket.Chat.
package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const emojiSourceURL = "https://raw.githubusercontent.com/mattermost/mattermost/master/webapp/channels/src/utils/emoji.ts"

var mapEntryRegex = regexp.MustCompile(`\["([^"]+)",\s*(\d+)\]`)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: go run emoji_generator.go <output_file>")
		os.Exit(1)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Successfully generated emoji shortcodes!")
}

func run(outputFile string) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	fmt.Println("Downloading emoji index...")
	resp, err := http.Get(emojiSourceURL)
	if err != nil {
		return fmt.Errorf("downloading emoji index: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading emoji index: unexpected status %d", resp.StatusCode)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading emoji index: %w", err)
	}

	aliasToIndex, indexToUnicode := parseEmojiMappings(string(content))
	fmt.Printf("Found %d alias mappings and %d unicode mappings\n", len(aliasToIndex), len(indexToUnicode))

	shortcodes := buildShortcodes(aliasToIndex, indexToUnicode)
	if len(shortcodes) == 0 {
		return fmt.Errorf("no shortcodes found, the emoji index format may have changed")
	}

	fmt.Printf("Writing %d shortcodes to %s\n", len(shortcodes), outputFile)
	file, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	writer := bufio.NewWriter(file)
	if err := writeTable(writer, shortcodes); err != nil {
		return err
	}
	return writer.Flush()
}

// parseEmojiMappings extracts the EmojiIndicesByAlias and EmojiIndicesByUnicode
// maps from the TypeScript source.
func parseEmojiMappings(content string) (map[string]int, map[int]string) {
	aliasToIndex := make(map[string]int)
	indexToUnicode := make(map[int]string)

	for _, match := range mapEntries(content, "export const EmojiIndicesByAlias = new Map([") {
		if index, err := strconv.Atoi(match[2]); err == nil {
			aliasToIndex[match[1]] = index
		}
	}
	for _, match := range mapEntries(content, "export const EmojiIndicesByUnicode = new Map([") {
		if index, err := strconv.Atoi(match[2]); err == nil {
			indexToUnicode[index] = match[1]
		}
	}

	return aliasToIndex, indexToUnicode
}

// mapEntries returns the ["key", index] entries of the Map literal that
// starts with header.
func mapEntries(content, header string) [][]string {
	start := strings.Index(content, header)
	if start == -1 {
		return nil
	}
	end := strings.Index(content[start:], "]);")
	if end == -1 {
		return nil
	}
	return mapEntryRegex.FindAllStringSubmatch(content[start:start+end], -1)
}

// buildShortcodes joins both maps into short name to lower case hex code
// points. Aliases without a Unicode form, such as custom emoji, are dropped.
func buildShortcodes(aliasToIndex map[string]int, indexToUnicode map[int]string) map[string]string {
	shortcodes := make(map[string]string, len(aliasToIndex))
	for alias, index := range aliasToIndex {
		unicode, ok := indexToUnicode[index]
		if !ok || unicode == "" {
			continue
		}
		shortcodes[strings.ToLower(alias)] = strings.ToLower(unicode)
	}
	return shortcodes
}

// writeTable writes the migrator source file holding emojiShortcodes, sorted
// by name so regenerations diff cleanly.
func writeTable(w io.Writer, shortcodes map[string]string) error {
	names := make([]string, 0, len(shortcodes))
	for name := range shortcodes {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("package migrator\n\n")
	b.WriteString("// emojiShortcodes maps emoji short names to their Unicode code points, as\n")
	b.WriteString("// hyphen separated hex. Rocket.Chat shortcodes not listed here are skipped\n")
	b.WriteString("// with a warning. Regenerate a complete table with tools/emoji_generator.go.\n")
	b.WriteString("var emojiShortcodes = map[string]string{\n")
	for _, name := range names {
		fmt.Fprintf(&b, "\t%s: %s,\n", strconv.Quote(name), strconv.Quote(shortcodes[name]))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
