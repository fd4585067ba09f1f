package prompt

import (
	"fmt"
	"log"
	"os"

	"tray-translate-llm/config"
)

// Default is the built-in instruction used when no prompt file exists.
const Default = "Please translate the following image into Brazilian Portuguese. " +
	"Output in Markdown, preserving the document's structure where helpful. " +
	"Do not use any code blocks around the text. " +
	"Do not add any commentary before or after; include ONLY the translation. " +
	"The user providing the image is your friend, so a friendly tone is OK if appropriate."

// Load reads the prompt file and returns its content verbatim.
// No trimming or templating: what the user wrote is what the API gets.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return string(data), nil
}

// Resolve returns the effective prompt for the given configuration: the
// configured file when present, otherwise the built-in default.
func Resolve(cfg *config.Config) string {
	text, err := Load(cfg.PromptPath)
	if err != nil {
		log.Printf("Prompt file not usable (%v), using built-in default", err)
		return Default
	}
	log.Printf("Loaded prompt from %s (%d bytes)", cfg.PromptPath, len(text))
	return text
}
